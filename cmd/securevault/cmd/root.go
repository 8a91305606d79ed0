package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

var (
	dataDir   string
	namespace string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "securevault",
	Short: "securevault keeps small secrets encrypted at rest",
	Long: `securevault seals small secrets with AES-256-GCM before they reach local
storage. Keys are either per-session or derived from a passphrase with
PBKDF2-SHA256. Run "securevault server" for the HTTP service, or use the
entry commands against the local store directly.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	rootCmd.PersistentFlags().StringVar(&namespace, "namespace", "storefront", "Prefix for stored entry keys")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// newLogger returns a JSON logger writing to w at the given level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	l, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func storePath(dir string) string {
	return filepath.Join(dir, "vault.db")
}
