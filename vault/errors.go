package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput indicates a required string argument was empty.
	ErrEmptyInput = errors.New("must not be empty")
	// ErrPayloadTooLarge indicates the plaintext or record exceeds MaxPlaintextSize.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInvalidEncoding indicates a sealed record is not valid base64.
	ErrInvalidEncoding = errors.New("invalid encoding")
	// ErrCorruptData indicates a sealed record is structurally unusable.
	ErrCorruptData = errors.New("corrupt data")
	// ErrDecryptionFailed covers authentication failures and wrong keys alike.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// ValidationError reports an invalid argument. It is returned before any I/O
// or cryptographic work.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid input: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// EncodingError reports a sealed record that could not be decoded or framed.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// CryptoError reports a failure in key handling or in the cipher itself.
// Decryption failures always carry ErrDecryptionFailed and nothing more
// specific.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// StorageError reports a failure reading or writing durable storage.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: storage: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func validationErrorf(op, format string, args ...any) error {
	return &ValidationError{Op: op, Err: fmt.Errorf(format, args...)}
}

func errCorruptTooShort(n int) error {
	return fmt.Errorf("%w: record too short (%d bytes, need at least %d)", ErrCorruptData, n, recordOverhead)
}
