// Package vault implements a secure local vault: small secrets are sealed
// with AES-256-GCM before they are written to durable storage, under either
// a per-session key held in volatile storage or a key derived from a
// caller-supplied passphrase with PBKDF2.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/jmcleod/securevault/crypto"
	"github.com/jmcleod/securevault/internal/util"
	"github.com/jmcleod/securevault/session"
	"github.com/jmcleod/securevault/storage"
)

const (
	DefaultNamespace    = "storefront"
	DefaultTimingBudget = 10 * time.Millisecond

	entryInfix      = "-secure-"
	sessionKeyInfix = "-encryption-key"
)

// Vault seals named entries into durable storage. One Vault corresponds to
// one session: its session key lives in the session.Store it was built with
// and disappears with it.
//
// Vault methods are safe for concurrent use. Concurrent Store calls for the
// same name race at the storage write and the last write wins.
type Vault struct {
	local        storage.Store
	keys         *keyring
	namespace    string
	kdfParams    crypto.PBKDF2Params
	timingBudget time.Duration
	escapeOutput bool
	logger       *slog.Logger
	observe      func(op string, err error)
}

// New creates a Vault writing sealed entries to local and caching its
// session key in sessions.
func New(local storage.Store, sessions session.Store, opts ...Option) (*Vault, error) {
	if local == nil || sessions == nil {
		return nil, fmt.Errorf("vault requires both durable and session storage")
	}
	v := &Vault{
		local:        local,
		namespace:    DefaultNamespace,
		kdfParams:    crypto.DefaultPBKDF2Params(),
		timingBudget: DefaultTimingBudget,
		escapeOutput: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.namespace == "" {
		return nil, fmt.Errorf("namespace must not be empty")
	}
	if err := crypto.ValidatePBKDF2Params(v.kdfParams); err != nil {
		return nil, err
	}
	if v.timingBudget < 0 {
		return nil, fmt.Errorf("timing budget must not be negative")
	}
	v.keys = &keyring{
		sessions:  sessions,
		entry:     v.namespace + sessionKeyInfix,
		kdfParams: v.kdfParams,
		logger:    v.logger,
	}
	return v, nil
}

// Namespace returns the prefix used for physical storage keys.
func (v *Vault) Namespace() string {
	return v.namespace
}

// EntryKey returns the physical storage key for name.
func (v *Vault) EntryKey(name string) (string, error) {
	clean, err := validateName("entry key", name)
	if err != nil {
		return "", err
	}
	return v.entryKey(clean), nil
}

func (v *Vault) entryKey(cleanName string) string {
	return v.namespace + entryInfix + cleanName
}

// Encrypt seals plaintext and returns the base64 record. Script tags and
// javascript: URIs in plaintext are neutralized first. Every call draws a
// fresh salt and IV, so equal inputs never produce equal records.
func (v *Vault) Encrypt(ctx context.Context, plaintext string, opts ...CallOption) (sealed string, err error) {
	defer func() { v.report("encrypt", err) }()
	return v.encrypt(ctx, plaintext, applyCallOptions(opts))
}

func (v *Vault) encrypt(ctx context.Context, plaintext string, o callOptions) (string, error) {
	const op = "encrypt"
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateText(op, "plaintext", plaintext); err != nil {
		return "", err
	}

	salt, err := util.RandomBytes(SaltSize)
	if err != nil {
		return "", &CryptoError{Op: op, Err: err}
	}
	k, err := v.keys.resolve(o.passphrase, salt)
	if err != nil {
		return "", &CryptoError{Op: op, Err: err}
	}

	data := []byte(neutralize(plaintext))
	if err := validateSize(op, len(data)); err != nil {
		return "", err
	}

	body, err := k.Seal(data)
	if err != nil {
		return "", &CryptoError{Op: op, Err: err}
	}
	return sealedRecord{salt: salt, body: body}.encode(), nil
}

// Decrypt opens a record produced by Encrypt. Malformed base64 yields an
// EncodingError carrying ErrInvalidEncoding, an undersized record one
// carrying ErrCorruptData, and a wrong key or tampered record a CryptoError
// carrying ErrDecryptionFailed.
//
// Decrypt takes at least the configured timing budget whatever the outcome.
// This blunts gross timing differences between early failures and full
// decryptions; it is not a constant-time guarantee, which rests with the
// underlying AES-GCM implementation.
func (v *Vault) Decrypt(ctx context.Context, sealed string, opts ...CallOption) (plaintext string, err error) {
	defer func() { v.report("decrypt", err) }()
	return v.decrypt(ctx, sealed, applyCallOptions(opts))
}

func (v *Vault) decrypt(ctx context.Context, sealed string, o callOptions) (plaintext string, err error) {
	const op = "decrypt"
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sealed == "" {
		return "", &ValidationError{Op: op, Err: fmt.Errorf("sealed record %w", ErrEmptyInput)}
	}

	start := time.Now()
	defer func() {
		if padErr := v.pad(ctx, start); padErr != nil && err == nil {
			plaintext, err = "", padErr
		}
	}()

	rec, err := decodeRecord(op, sealed)
	if err != nil {
		return "", err
	}
	k, err := v.keys.resolve(o.passphrase, rec.salt)
	if err != nil {
		return "", &CryptoError{Op: op, Err: err}
	}
	if rec.plaintextLen() > MaxPlaintextSize {
		return "", &EncodingError{Op: op, Err: ErrPayloadTooLarge}
	}

	data, err := k.Open(rec.body)
	if err != nil {
		return "", &CryptoError{Op: op, Err: ErrDecryptionFailed}
	}
	if !utf8.Valid(data) {
		return "", &CryptoError{Op: op, Err: ErrDecryptionFailed}
	}

	plaintext = string(data)
	if v.escapeOutput {
		plaintext = outputEscape.Replace(plaintext)
	}
	return plaintext, nil
}

// pad sleeps until timingBudget has elapsed since start.
func (v *Vault) pad(ctx context.Context, start time.Time) error {
	remaining := v.timingBudget - time.Since(start)
	if remaining <= 0 {
		return nil
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Store seals value and writes it under name, replacing any previous entry.
func (v *Vault) Store(ctx context.Context, name, value string, opts ...CallOption) (err error) {
	const op = "store"
	defer func() { v.report(op, err) }()

	clean, err := validateName(op, name)
	if err != nil {
		return err
	}
	if err := validateText(op, "value", value); err != nil {
		return err
	}
	physical := v.entryKey(clean)

	sealed, err := v.encrypt(ctx, value, applyCallOptions(opts))
	if err != nil {
		v.logger.Error("sealing secure entry failed",
			slog.String("key", physical), slog.Any("error", err))
		return err
	}
	if err := v.local.Set(physical, sealed); err != nil {
		v.logger.Error("writing secure entry failed",
			slog.String("key", physical), slog.Any("error", err))
		return &StorageError{Op: op, Key: physical, Err: err}
	}
	return nil
}

// Retrieve returns the value stored under name. A missing entry reports
// ok == false. So does an entry that cannot be read or opened (wrong
// passphrase, ended session, corruption): that failure is logged, not
// returned, so callers fall back to their primary source. Only invalid
// arguments and context errors are returned.
func (v *Vault) Retrieve(ctx context.Context, name string, opts ...CallOption) (value string, ok bool, err error) {
	const op = "retrieve"
	var softErr error
	defer func() {
		if err != nil {
			v.report(op, err)
			return
		}
		v.report(op, softErr)
	}()

	clean, err := validateName(op, name)
	if err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	physical := v.entryKey(clean)

	// Misses are padded like decryptions so timing does not reveal whether
	// an entry exists.
	start := time.Now()
	sealed, err := v.local.Get(physical)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, v.pad(ctx, start)
	}
	if err != nil {
		softErr = &StorageError{Op: op, Key: physical, Err: err}
		v.logger.Warn("reading secure entry failed",
			slog.String("key", physical), slog.Any("error", err))
		return "", false, v.pad(ctx, start)
	}

	value, err = v.decrypt(ctx, sealed, applyCallOptions(opts))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		softErr = err
		v.logger.Warn("opening secure entry failed",
			slog.String("key", physical), slog.Any("error", err))
		return "", false, nil
	}
	return value, true, nil
}

// Remove deletes the entry stored under name. Removing a missing entry is
// not an error.
func (v *Vault) Remove(name string) (err error) {
	const op = "remove"
	defer func() { v.report(op, err) }()

	clean, err := validateName(op, name)
	if err != nil {
		return err
	}
	physical := v.entryKey(clean)
	if err := v.local.Delete(physical); err != nil {
		v.logger.Error("deleting secure entry failed",
			slog.String("key", physical), slog.Any("error", err))
		return &StorageError{Op: op, Key: physical, Err: err}
	}
	return nil
}

// Names lists the sanitized names of the entries stored in this vault's
// namespace.
func (v *Vault) Names() ([]string, error) {
	prefix := v.namespace + entryInfix
	keys, err := v.local.Keys(prefix)
	if err != nil {
		return nil, &StorageError{Op: "names", Key: prefix, Err: err}
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k[len(prefix):])
	}
	return names, nil
}

func (v *Vault) report(op string, err error) {
	if v.observe != nil {
		v.observe(op, err)
	}
}
