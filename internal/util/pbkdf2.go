package util

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// MinPBKDF2Iterations is the lowest iteration count DerivePBKDF2Key accepts.
const MinPBKDF2Iterations = 100_000

type PBKDF2Params struct {
	Iterations int `json:"iterations" yaml:"iterations"`
	KeyLen     int `json:"key_len" yaml:"key_len"`
}

func DefaultPBKDF2Params() PBKDF2Params {
	return PBKDF2Params{
		Iterations: MinPBKDF2Iterations,
		KeyLen:     AESKeySize,
	}
}

func ValidatePBKDF2Params(p PBKDF2Params) error {
	if p.Iterations < MinPBKDF2Iterations {
		return fmt.Errorf("pbkdf2 iterations %d below minimum %d", p.Iterations, MinPBKDF2Iterations)
	}
	if p.KeyLen != AESKeySize {
		return fmt.Errorf("pbkdf2 key length must be %d bytes", AESKeySize)
	}
	return nil
}

// DerivePBKDF2Key stretches the passphrase's UTF-8 bytes, unmodified, with
// PBKDF2-HMAC-SHA256.
func DerivePBKDF2Key(passphrase string, salt []byte, params PBKDF2Params) ([]byte, error) {
	if err := ValidatePBKDF2Params(params); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("pbkdf2 salt must not be empty")
	}
	return pbkdf2.Key([]byte(passphrase), salt, params.Iterations, params.KeyLen, sha256.New), nil
}
