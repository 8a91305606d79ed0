package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/securevault/api"
	"github.com/jmcleod/securevault/internal/util"
	"github.com/jmcleod/securevault/storage"
	bboltstorage "github.com/jmcleod/securevault/storage/bbolt"
	pgstorage "github.com/jmcleod/securevault/storage/postgres"
	"github.com/jmcleod/securevault/vault"
)

var (
	configPath  string
	port        int
	idleTimeout time.Duration
	maxLifetime time.Duration
	postgresDSN string
	tlsCert     string
	tlsKey      string
	plainHTTP   bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the securevault HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveServerConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(os.Stderr, cfg.LogLevel)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		local, closeStore, err := openDurableStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		a, err := api.New(local,
			api.WithLogger(logger),
			api.WithIdleTimeout(cfg.IdleTimeout),
			api.WithMaxLifetime(cfg.MaxLifetime),
			api.WithVaultOptions(
				vault.WithNamespace(cfg.Namespace),
				vault.WithPBKDF2Iterations(cfg.PBKDF2Iterations),
			),
		)
		if err != nil {
			return err
		}
		defer a.Close()

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           newRouter(a, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if !cfg.PlainHTTP {
			tlsConfig, err := loadTLSConfig(cfg)
			if err != nil {
				return err
			}
			server.TLSConfig = tlsConfig
		}

		done := make(chan error, 1)
		go func() {
			var err error
			if cfg.PlainHTTP {
				err = server.ListenAndServe()
			} else {
				err = server.ListenAndServeTLS("", "")
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner(cmd.OutOrStdout())
		logger.Info("server started",
			slog.Int("port", cfg.Port),
			slog.String("data_dir", cfg.DataDir),
			slog.String("namespace", cfg.Namespace),
			slog.Bool("tls", !cfg.PlainHTTP))

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	serverCmd.Flags().IntVarP(&port, "port", "p", 8443, "Port to listen on")
	serverCmd.Flags().DurationVar(&idleTimeout, "idle-timeout", api.DefaultIdleTimeout, "End client sessions idle this long")
	serverCmd.Flags().DurationVar(&maxLifetime, "max-lifetime", api.DefaultMaxLifetime, "End client sessions this long after creation")
	serverCmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "Store entries in PostgreSQL instead of the local bbolt file")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
	serverCmd.Flags().BoolVar(&plainHTTP, "plain-http", false, "Serve plain HTTP, e.g. behind a TLS-terminating proxy")
}

// resolveServerConfig layers explicitly set flags over the config file.
func resolveServerConfig(cmd *cobra.Command) (serverConfig, error) {
	cfg, err := loadServerConfig(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("namespace") {
		cfg.Namespace = namespace
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = idleTimeout
	}
	if flags.Changed("max-lifetime") {
		cfg.MaxLifetime = maxLifetime
	}
	if flags.Changed("postgres-dsn") {
		cfg.PostgresDSN = postgresDSN
	}
	if flags.Changed("tls-cert") {
		cfg.TLSCert = tlsCert
	}
	if flags.Changed("tls-key") {
		cfg.TLSKey = tlsKey
	}
	if flags.Changed("plain-http") {
		cfg.PlainHTTP = plainHTTP
	}
	return cfg, cfg.validate()
}

// openDurableStore opens PostgreSQL when a DSN is configured and the bbolt
// file under the data directory otherwise.
func openDurableStore(ctx context.Context, cfg serverConfig) (storage.Store, func(), error) {
	if cfg.PostgresDSN != "" {
		s, err := pgstorage.NewStoreFromDSN(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s, err := bboltstorage.NewStoreFromFile(storePath(cfg.DataDir), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local storage: %w", err)
	}
	return s, func() { s.Close() }, nil
}

func loadTLSConfig(cfg serverConfig) (*tls.Config, error) {
	var cert tls.Certificate
	var err error
	if cfg.TLSCert != "" {
		cert, err = tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
	} else {
		cert, err = util.GenerateSelfSignedCert()
		if err != nil {
			return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
		}
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// newRouter assembles the server's handler tree around the API.
func newRouter(a *api.API, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(api.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", a.MetricsHandler())
	r.Mount("/api/v1", a.Router())
	return r
}

// requestLogger logs one line per request. Headers and bodies are never
// logged since they may carry passphrases.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
