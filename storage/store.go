// Package storage provides the durable key/value layer that sealed vault
// records are written to.
package storage

import "errors"

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("not found")

// Store is durable string-keyed storage, the server-side counterpart of a
// browser's local storage. Values are opaque strings; the vault only ever
// writes base64 sealed records.
type Store interface {
	// Get returns the value under key, or ErrNotFound.
	Get(key string) (string, error)
	// Set creates or fully overwrites the value under key.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys lists the keys that start with prefix, in lexical order.
	Keys(prefix string) ([]string, error)
}
