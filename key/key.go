// Package key provides the symmetric AES-256-GCM keys used to seal vault
// records and their exportable JSON Web Key form.
package key

import (
	"crypto/subtle"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/securevault/internal/util"
)

// Size is the length of raw key material in bytes.
const Size = util.AESKeySize

// Key is a 256-bit AES-GCM key. The raw bytes live in a memguard Enclave and
// are only decrypted into locked memory for the duration of a Seal or Open.
type Key struct {
	enclave *memguard.Enclave
}

// New generates a new random key.
func New() (*Key, error) {
	raw, err := util.NewAESKey()
	if err != nil {
		return nil, fmt.Errorf("generating symmetric key: %w", err)
	}
	return FromBytes(raw)
}

// FromBytes wraps raw key material. The caller's slice is wiped.
func FromBytes(raw []byte) (*Key, error) {
	if len(raw) != Size {
		util.WipeBytes(raw)
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(raw), Size)
	}
	return &Key{enclave: memguard.NewEnclave(raw)}, nil
}

// Seal encrypts plainText and returns nonce || ciphertext || tag.
func (k *Key) Seal(plainText []byte) ([]byte, error) {
	var sealed []byte
	err := k.with(func(raw []byte) error {
		var err error
		sealed, err = util.SealGCM(plainText, raw, nil)
		return err
	})
	return sealed, err
}

// Open decrypts nonce || ciphertext || tag as produced by Seal.
func (k *Key) Open(sealed []byte) ([]byte, error) {
	var plainText []byte
	err := k.with(func(raw []byte) error {
		var err error
		plainText, err = util.OpenGCM(sealed, raw, nil)
		return err
	})
	return plainText, err
}

// Equal reports whether both keys hold the same material. Intended for tests
// and diagnostics.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	equal := false
	err := k.with(func(a []byte) error {
		return other.with(func(b []byte) error {
			equal = subtle.ConstantTimeCompare(a, b) == 1
			return nil
		})
	})
	if err != nil {
		return false
	}
	return equal
}

func (k *Key) with(fn func(raw []byte) error) error {
	if k == nil || k.enclave == nil {
		return fmt.Errorf("key is not initialized")
	}
	buf, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("opening key enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}
