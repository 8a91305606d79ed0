package vault

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/jmcleod/securevault/crypto"
	"github.com/jmcleod/securevault/key"
	"github.com/jmcleod/securevault/session"
)

// keyring resolves the key for one operation: either the session key cached
// in volatile storage, or a key derived from a passphrase and record salt.
type keyring struct {
	sessions  session.Store
	entry     string
	kdfParams crypto.PBKDF2Params
	logger    *slog.Logger
	flight    singleflight.Group
}

func (r *keyring) resolve(passphrase string, salt []byte) (*key.Key, error) {
	if passphrase != "" {
		return r.derive(passphrase, salt)
	}
	return r.sessionKey()
}

func (r *keyring) derive(passphrase string, salt []byte) (*key.Key, error) {
	raw, err := crypto.DeriveKey(passphrase, salt, crypto.WithPBKDF2Params(r.kdfParams))
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key.FromBytes(raw)
}

// sessionKey returns the cached session key, creating and caching one on
// first use. Creation runs under a single flight so concurrent first callers
// share one key instead of racing to overwrite the cache.
func (r *keyring) sessionKey() (*key.Key, error) {
	if k, ok := r.load(); ok {
		return k, nil
	}
	v, err, _ := r.flight.Do(r.entry, func() (any, error) {
		if k, ok := r.load(); ok {
			return k, nil
		}
		k, err := key.New()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("exporting session key: %w", err)
		}
		r.sessions.Set(r.entry, string(data))
		r.logger.Debug("created session key", slog.String("entry", r.entry))
		return k, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*key.Key), nil
}

func (r *keyring) load() (*key.Key, bool) {
	data, ok := r.sessions.Get(r.entry)
	if !ok {
		return nil, false
	}
	k, err := key.Parse([]byte(data))
	if err != nil {
		// Unusable cached key: nothing sealed under it can be opened, so
		// treat it as absent and let the next flight replace it.
		r.logger.Warn("discarding unreadable session key",
			slog.String("entry", r.entry), slog.Any("error", err))
		return nil, false
	}
	return k, true
}
