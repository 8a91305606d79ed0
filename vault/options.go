package vault

import (
	"log/slog"
	"time"
)

// Option configures a Vault.
type Option func(*Vault)

// WithNamespace sets the prefix of every physical storage key.
// Default: "storefront".
func WithNamespace(ns string) Option {
	return func(v *Vault) {
		v.namespace = ns
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		v.logger = logger
	}
}

// WithPBKDF2Iterations sets the passphrase stretching work factor.
// Values below MinPBKDF2Iterations are rejected by New.
func WithPBKDF2Iterations(n int) Option {
	return func(v *Vault) {
		v.kdfParams.Iterations = n
	}
}

// WithTimingBudget sets the minimum wall-clock duration of Decrypt.
// Zero disables padding. Default: 10ms.
func WithTimingBudget(d time.Duration) Option {
	return func(v *Vault) {
		v.timingBudget = d
	}
}

// WithoutOutputEscaping disables the "<" / ">" escape applied to decrypted
// plaintext, so Decrypt returns exactly what Encrypt stored.
func WithoutOutputEscaping() Option {
	return func(v *Vault) {
		v.escapeOutput = false
	}
}

// WithObserver registers a callback invoked after every Encrypt, Decrypt,
// Store, Retrieve and Remove with the operation name and its outcome.
// Retrieve reports read-path failures here even though it swallows them.
func WithObserver(fn func(op string, err error)) Option {
	return func(v *Vault) {
		v.observe = fn
	}
}

// CallOption configures a single vault operation.
type CallOption func(*callOptions)

type callOptions struct {
	passphrase string
}

// WithPassphrase derives the key from passphrase and the record salt
// instead of using the session key.
func WithPassphrase(passphrase string) CallOption {
	return func(o *callOptions) {
		o.passphrase = passphrase
	}
}

func applyCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
