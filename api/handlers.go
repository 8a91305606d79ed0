package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jmcleod/securevault/vault"
)

// passphraseHeader carries the optional passphrase on GET requests.
const passphraseHeader = "X-Vault-Passphrase"

// decodeRequest reads a JSON body into dst and validates it. On failure it
// writes the response and returns false.
func (a *API) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid request: " + strings.Join(msgs, ", ")
}

func passphraseOption(passphrase string) []vault.CallOption {
	if passphrase == "" {
		return nil
	}
	return []vault.CallOption{vault.WithPassphrase(passphrase)}
}

// throttled writes a 429 and returns true if the session is locked out of
// decryption.
func (a *API) throttled(w http.ResponseWriter, cs *clientSession) bool {
	if blocked, retryAfter := a.limiter.check(cs.id); blocked {
		writeRateLimited(w, retryAfter)
		return true
	}
	return false
}

// ListEntries handles GET /entries.
func (a *API) ListEntries(w http.ResponseWriter, r *http.Request) {
	cs := clientSessionFromContext(r.Context())
	names, err := cs.vault.Names()
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListEntriesResponse{Names: names})
}

// PutEntry handles PUT /entries/{name}.
func (a *API) PutEntry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cs := clientSessionFromContext(r.Context())

	var req PutEntryRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	if err := cs.vault.Store(r.Context(), name, req.Value, passphraseOption(req.Passphrase)...); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEntry handles GET /entries/{name}. An entry that cannot be opened in
// this session is reported as not found.
func (a *API) GetEntry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cs := clientSessionFromContext(r.Context())
	if a.throttled(w, cs) {
		return
	}

	value, ok, err := cs.vault.Retrieve(r.Context(), name, passphraseOption(r.Header.Get(passphraseHeader))...)
	if err != nil {
		mapError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, EntryResponse{Name: vault.SanitizeName(name), Value: value})
}

// DeleteEntry handles DELETE /entries/{name}.
func (a *API) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cs := clientSessionFromContext(r.Context())
	if err := cs.vault.Remove(name); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Encrypt handles POST /encrypt.
func (a *API) Encrypt(w http.ResponseWriter, r *http.Request) {
	cs := clientSessionFromContext(r.Context())
	var req EncryptRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	sealed, err := cs.vault.Encrypt(r.Context(), req.Plaintext, passphraseOption(req.Passphrase)...)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EncryptResponse{Sealed: sealed})
}

// Decrypt handles POST /decrypt.
func (a *API) Decrypt(w http.ResponseWriter, r *http.Request) {
	cs := clientSessionFromContext(r.Context())
	if a.throttled(w, cs) {
		return
	}
	var req DecryptRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	plaintext, err := cs.vault.Decrypt(r.Context(), req.Sealed, passphraseOption(req.Passphrase)...)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DecryptResponse{Plaintext: plaintext})
}

// EndSession handles POST /session/end. The session key is discarded, so
// entries sealed without a passphrase in this session become unreadable.
func (a *API) EndSession(w http.ResponseWriter, r *http.Request) {
	cs := clientSessionFromContext(r.Context())
	a.sessions.End(cs.id)
	clearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Hash handles POST /hash.
func (a *API) Hash(w http.ResponseWriter, r *http.Request) {
	var req HashRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{Hash: vault.Hash(req.Value)})
}

// Token handles GET /token?length=n.
func (a *API) Token(w http.ResponseWriter, r *http.Request) {
	length := vault.DefaultTokenLength
	if raw := r.URL.Query().Get("length"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "length must be an integer")
			return
		}
		if err := a.validate.Var(n, fmt.Sprintf("min=1,max=%d", vault.MaxTokenLength)); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("length must be between 1 and %d", vault.MaxTokenLength))
			return
		}
		length = n
	}
	token, err := vault.GenerateToken(length)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// Safety handles POST /safety.
func (a *API) Safety(w http.ResponseWriter, r *http.Request) {
	var req SafetyRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, SafetyResponse{
		Safe:      vault.IsSafe(req.Input),
		Sanitized: vault.Sanitize(req.Input),
	})
}
