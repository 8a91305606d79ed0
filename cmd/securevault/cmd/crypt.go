package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/securevault/vault"
)

var tokenLength int

var encryptCmd = &cobra.Command{
	Use:   "encrypt <plaintext|->",
	Short: "Seal plaintext and print the base64 record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pass, err := resolvePassphrase()
		if err != nil {
			return err
		}
		plaintext, err := argOrStdin(cmd, args[0])
		if err != nil {
			return err
		}
		return withDetachedVault(func(v *vault.Vault) error {
			sealed, err := v.Encrypt(cmd.Context(), plaintext, vault.WithPassphrase(pass))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		})
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <sealed|->",
	Short: "Open a base64 record and print the plaintext",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pass, err := resolvePassphrase()
		if err != nil {
			return err
		}
		sealed, err := argOrStdin(cmd, args[0])
		if err != nil {
			return err
		}
		return withDetachedVault(func(v *vault.Vault) error {
			plaintext, err := v.Decrypt(cmd.Context(), sealed, vault.WithPassphrase(pass))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			return nil
		})
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash <value|->",
	Short: "Print the SHA-256 hex digest of value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := argOrStdin(cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), vault.Hash(value))
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a random hex token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := vault.GenerateToken(tokenLength)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{encryptCmd, decryptCmd} {
		c.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase (default $"+passphraseEnv+")")
	}
	tokenCmd.Flags().IntVarP(&tokenLength, "length", "n", vault.DefaultTokenLength, "Number of random bytes")
	rootCmd.AddCommand(encryptCmd, decryptCmd, hashCmd, tokenCmd)
}
