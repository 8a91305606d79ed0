// Package crypto exposes the key derivation used by securevault so other
// tools can produce keys compatible with passphrase-sealed records.
package crypto

import "github.com/jmcleod/securevault/internal/util"

// PBKDF2Params configures PBKDF2-HMAC-SHA256 key derivation.
type PBKDF2Params = util.PBKDF2Params

// MinIterations is the lowest accepted PBKDF2 iteration count.
const MinIterations = util.MinPBKDF2Iterations

// KeySize is the length in bytes of derived and generated keys.
const KeySize = util.AESKeySize

// DeriveKeyOption is a functional option for DeriveKey.
type DeriveKeyOption func(*deriveKeyOptions)

type deriveKeyOptions struct {
	params PBKDF2Params
}

// WithPBKDF2Params sets the PBKDF2 parameters.
func WithPBKDF2Params(params PBKDF2Params) DeriveKeyOption {
	return func(o *deriveKeyOptions) {
		o.params = params
	}
}

// WithIterations overrides only the iteration count.
func WithIterations(n int) DeriveKeyOption {
	return func(o *deriveKeyOptions) {
		o.params.Iterations = n
	}
}

// DeriveKey stretches passphrase into an AES-256 key bound to salt. The
// passphrase bytes are used as given; no Unicode normalization is applied.
func DeriveKey(passphrase string, salt []byte, opts ...DeriveKeyOption) ([]byte, error) {
	options := deriveKeyOptions{
		params: DefaultPBKDF2Params(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return util.DerivePBKDF2Key(passphrase, salt, options.params)
}

// DefaultPBKDF2Params returns the default parameters: MinIterations rounds
// producing a KeySize key.
func DefaultPBKDF2Params() PBKDF2Params {
	return util.DefaultPBKDF2Params()
}

// ValidatePBKDF2Params checks that the given parameters meet the minimum
// acceptable thresholds.
func ValidatePBKDF2Params(p PBKDF2Params) error {
	return util.ValidatePBKDF2Params(p)
}

// NewKey returns a random AES-256 key.
func NewKey() ([]byte, error) {
	return util.NewAESKey()
}
