package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/securevault/session"
	"github.com/jmcleod/securevault/storage"
	bboltstorage "github.com/jmcleod/securevault/storage/bbolt"
	"github.com/jmcleod/securevault/storage/memory"
	"github.com/jmcleod/securevault/vault"
)

const passphraseEnv = "SECUREVAULT_PASSPHRASE"

var passphrase string

// resolvePassphrase prefers the flag over the environment. A CLI process is
// its own session, so session-key records would be unreadable by the next
// invocation: a passphrase is mandatory.
func resolvePassphrase() (string, error) {
	if passphrase != "" {
		return passphrase, nil
	}
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("a passphrase is required: pass --passphrase or set %s", passphraseEnv)
}

// withLocalVault opens the bbolt store under the data directory and runs fn
// with a vault over it.
func withLocalVault(fn func(v *vault.Vault) error) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	s, err := bboltstorage.NewStoreFromFile(storePath(dataDir), nil)
	if err != nil {
		return fmt.Errorf("failed to open local storage: %w", err)
	}
	defer s.Close()
	return withVault(s, fn)
}

// withDetachedVault runs fn with a vault over an in-memory store, for
// operations that never touch stored entries. It does not contend for the
// bbolt file lock held by a running server.
func withDetachedVault(fn func(v *vault.Vault) error) error {
	return withVault(memory.NewStore(), fn)
}

// withVault builds the CLI's vault over local. Output escaping is off: the
// terminal is not a browser.
func withVault(local storage.Store, fn func(v *vault.Vault) error) error {
	logger, err := newLogger(os.Stderr, logLevel)
	if err != nil {
		return err
	}
	v, err := vault.New(local, session.NewMemoryStore(),
		vault.WithNamespace(namespace),
		vault.WithLogger(logger),
		vault.WithoutOutputEscaping(),
	)
	if err != nil {
		return err
	}
	return fn(v)
}

// argOrStdin returns arg, or all of stdin when arg is "-".
func argOrStdin(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

var putCmd = &cobra.Command{
	Use:   "put <name> <value|->",
	Short: "Seal a value and store it under name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pass, err := resolvePassphrase()
		if err != nil {
			return err
		}
		value, err := argOrStdin(cmd, args[1])
		if err != nil {
			return err
		}
		return withLocalVault(func(v *vault.Vault) error {
			return v.Store(cmd.Context(), args[0], value, vault.WithPassphrase(pass))
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print the value stored under name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pass, err := resolvePassphrase()
		if err != nil {
			return err
		}
		return withLocalVault(func(v *vault.Vault) error {
			value, ok, err := v.Retrieve(cmd.Context(), args[0], vault.WithPassphrase(pass))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("entry %q not found or cannot be opened with this passphrase", vault.SanitizeName(args[0]))
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove the entry stored under name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocalVault(func(v *vault.Vault) error {
			return v.Remove(args[0])
		})
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List entry names in the namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocalVault(func(v *vault.Vault) error {
			names, err := v.Names()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{putCmd, getCmd} {
		c.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase (default $"+passphraseEnv+")")
	}
	rootCmd.AddCommand(putCmd, getCmd, rmCmd, lsCmd)
}
