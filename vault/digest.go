package vault

import (
	"crypto/sha256"

	"github.com/jmcleod/securevault/internal/util"
)

const (
	// DefaultTokenLength is the number of random bytes in a generated token.
	DefaultTokenLength = 32
	// MaxTokenLength caps the bytes GenerateToken will draw.
	MaxTokenLength = 1024
)

// Hash returns the hex SHA-256 digest of value. It is an integrity
// fingerprint and must not be used to store passwords.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return util.HexEncode(sum[:])
}

// GenerateToken returns n cryptographically random bytes as hex
// (2n characters).
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", validationErrorf("generate token", "length must be positive, got %d", n)
	}
	if n > MaxTokenLength {
		return "", validationErrorf("generate token", "length %d exceeds maximum of %d", n, MaxTokenLength)
	}
	return util.RandomHex(n)
}
