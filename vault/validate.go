package vault

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	// MaxNameLength bounds entry names before sanitization.
	MaxNameLength = 256
	// MaxPlaintextSize is the ceiling on UTF-8 plaintext bytes.
	MaxPlaintextSize = 10 << 20
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeName reduces an entry name to the characters allowed in a
// physical storage key.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "")
}

func validateName(op, name string) (string, error) {
	if name == "" {
		return "", &ValidationError{Op: op, Err: fmt.Errorf("name %w", ErrEmptyInput)}
	}
	if len(name) > MaxNameLength {
		return "", validationErrorf(op, "name exceeds maximum length of %d", MaxNameLength)
	}
	clean := SanitizeName(name)
	if clean == "" {
		return "", validationErrorf(op, "name %q has no usable characters", name)
	}
	return clean, nil
}

func validateText(op, label, s string) error {
	if s == "" {
		return &ValidationError{Op: op, Err: fmt.Errorf("%s %w", label, ErrEmptyInput)}
	}
	if !utf8.ValidString(s) {
		return validationErrorf(op, "%s contains invalid UTF-8", label)
	}
	return nil
}

func validateSize(op string, n int) error {
	if n > MaxPlaintextSize {
		return &ValidationError{Op: op, Err: fmt.Errorf("%d bytes exceeds %d: %w", n, MaxPlaintextSize, ErrPayloadTooLarge)}
	}
	return nil
}
