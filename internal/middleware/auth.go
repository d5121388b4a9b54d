package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type key string

const UserIDKey key = "user_id"

// SessionReader returns the user bound to the request's session cookie.
type SessionReader interface {
	UserID(r *http.Request) (int, bool)
}

// TokenParser verifies a bearer token and returns its user id.
type TokenParser interface {
	Parse(raw string) (int, error)
}

// Authenticator resolves the caller on every request, from the session
// cookie first and then from an Authorization: Bearer header.
type Authenticator struct {
	Sessions SessionReader
	Tokens   TokenParser
}

// UserID returns the authenticated user id, if any.
func (a *Authenticator) UserID(r *http.Request) (int, bool) {
	if a.Sessions != nil {
		if id, ok := a.Sessions.UserID(r); ok {
			return id, true
		}
	}
	if a.Tokens == nil {
		return 0, false
	}
	raw, ok := bearerToken(r)
	if !ok {
		return 0, false
	}
	id, err := a.Tokens.Parse(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// RequireAPI rejects unauthenticated requests with 401 JSON.
func (a *Authenticator) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.UserID(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// RequirePage sends unauthenticated browsers to the login page.
func (a *Authenticator) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := a.UserID(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

func WithUserID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// UserIDFrom returns the id stored by RequireAPI or RequirePage.
func UserIDFrom(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(UserIDKey).(int)
	return id, ok
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(h[7:])
	return raw, raw != ""
}
