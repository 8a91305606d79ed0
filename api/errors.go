package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/securevault/vault"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// mapError translates vault errors into HTTP responses. Crypto and encoding
// failures get a fixed message so responses do not distinguish a wrong key
// from a tampered record.
func mapError(w http.ResponseWriter, err error) {
	switch errorKind(err) {
	case kindValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case kindEncoding:
		writeError(w, http.StatusUnprocessableEntity, "invalid or corrupt record")
	case kindCrypto:
		writeError(w, http.StatusUnprocessableEntity, "decryption failed")
	case kindStorage:
		writeError(w, http.StatusInternalServerError, "storage failure")
	case kindCanceled:
		writeError(w, http.StatusServiceUnavailable, "request canceled")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

const (
	kindOK         = "ok"
	kindValidation = "validation"
	kindEncoding   = "encoding"
	kindCrypto     = "crypto"
	kindStorage    = "storage"
	kindCanceled   = "canceled"
	kindInternal   = "internal"
)

// errorKind classifies err by its vault error variant. It doubles as the
// result label on the operations counter.
func errorKind(err error) string {
	if err == nil {
		return kindOK
	}
	if _, ok := errors.AsType[*vault.ValidationError](err); ok {
		return kindValidation
	}
	if _, ok := errors.AsType[*vault.EncodingError](err); ok {
		return kindEncoding
	}
	if _, ok := errors.AsType[*vault.CryptoError](err); ok {
		return kindCrypto
	}
	if isStorageError(err) {
		return kindStorage
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return kindCanceled
	}
	return kindInternal
}

func isStorageError(err error) bool {
	_, ok := errors.AsType[*vault.StorageError](err)
	return ok
}
