package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	// SessionName is the cookie that carries the signed session.
	SessionName = "dermalens_session"
	userIDKey   = "user_id"
)

// Sessions keeps the authenticated user id in a signed cookie.
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions builds a cookie store signed with secret. A zero maxAge leaves
// the cookie as a browser-session cookie.
func NewSessions(secret []byte, maxAge time.Duration, secure bool) *Sessions {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)
	return &Sessions{store: store}
}

// Login binds userID to the caller's session.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID int) error {
	// A cookie that fails verification still yields a fresh session.
	sess, _ := s.store.Get(r, SessionName)
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// UserID returns the id bound to the request's session, if any.
func (s *Sessions) UserID(r *http.Request) (int, bool) {
	sess, err := s.store.Get(r, SessionName)
	if err != nil {
		return 0, false
	}
	id, ok := sess.Values[userIDKey].(int)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// Logout clears the session and expires the cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, SessionName)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
