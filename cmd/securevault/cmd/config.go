package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmcleod/securevault/api"
	"github.com/jmcleod/securevault/crypto"
)

// serverConfig is the server's settings file. Flags given on the command
// line take precedence over it.
type serverConfig struct {
	Port             int           `yaml:"port"`
	DataDir          string        `yaml:"data_dir"`
	Namespace        string        `yaml:"namespace"`
	LogLevel         string        `yaml:"log_level"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	MaxLifetime      time.Duration `yaml:"max_lifetime"`
	PostgresDSN      string        `yaml:"postgres_dsn"`
	TLSCert          string        `yaml:"tls_cert"`
	TLSKey           string        `yaml:"tls_key"`
	PlainHTTP        bool          `yaml:"plain_http"`
	PBKDF2Iterations int           `yaml:"pbkdf2_iterations"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Port:             8443,
		DataDir:          "./data",
		Namespace:        "storefront",
		LogLevel:         "info",
		IdleTimeout:      api.DefaultIdleTimeout,
		MaxLifetime:      api.DefaultMaxLifetime,
		PBKDF2Iterations: crypto.MinIterations,
	}
}

// loadServerConfig reads a YAML file over the defaults. An empty path
// returns the defaults.
func loadServerConfig(path string) (serverConfig, error) {
	cfg := defaultServerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c serverConfig) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Namespace == "" {
		errs = append(errs, errors.New("namespace must not be empty"))
	}
	if c.IdleTimeout < 0 || c.MaxLifetime < 0 {
		errs = append(errs, errors.New("session timeouts must not be negative"))
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		errs = append(errs, errors.New("tls_cert and tls_key must be set together"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := crypto.ValidatePBKDF2Params(crypto.PBKDF2Params{Iterations: c.PBKDF2Iterations, KeyLen: crypto.KeySize}); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
