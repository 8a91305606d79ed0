package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type contextKey int

const clientSessionKey contextKey = iota

const sessionCookieName = "sv_session"

// SessionMiddleware binds each request to a client session. A request
// without a live session cookie gets a new session, and with it a fresh
// volatile store: records sealed under an earlier session key can no longer
// be opened.
func (a *API) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs, ok := a.clientSessionFromCookie(r)
		if !ok {
			id, created, err := a.sessions.Create()
			if err != nil {
				a.logger.Error("creating client session failed", slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			writeSessionCookie(w, r, id)
			cs = created
		}
		ctx := context.WithValue(r.Context(), clientSessionKey, cs)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) clientSessionFromCookie(r *http.Request) (*clientSession, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return a.sessions.Get(cookie.Value)
}

func clientSessionFromContext(ctx context.Context) *clientSession {
	cs, _ := ctx.Value(clientSessionKey).(*clientSession)
	return cs
}

func writeSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
