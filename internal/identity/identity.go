// Package identity resolves the chat session key of a request.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName       = "shop_session_id"
	SessionHeader    = "X-Session-ID"
	sessionCookieAge = 30 * 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

// SessionIDFromContext returns the session key stored by Middleware.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID returns a copy of ctx carrying id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// Sanitize returns id trimmed, or "" when it is not an acceptable key.
func Sanitize(id string) string {
	id = strings.TrimSpace(id)
	if !sessionIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// Resolve picks the session key for a chat message: an explicit id from the
// body wins over the one resolved by Middleware.
func Resolve(ctx context.Context, explicit string) string {
	if id := Sanitize(explicit); id != "" {
		return id
	}
	return SessionIDFromContext(ctx)
}

// NewSessionID returns a fresh random session key.
func NewSessionID() string {
	return uuid.NewString()
}

func sessionIDFromRequest(r *http.Request) (string, bool) {
	if id := Sanitize(r.Header.Get(SessionHeader)); id != "" {
		return id, true
	}
	if id := Sanitize(r.URL.Query().Get("session_id")); id != "" {
		return id, true
	}
	if c, err := r.Cookie(CookieName); err == nil {
		if id := Sanitize(c.Value); id != "" {
			return id, true
		}
	}
	return "", false
}

func setSessionCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware stores the request's session key in the context. The key comes
// from the X-Session-ID header, the session_id query parameter or the session
// cookie, in that order; a new key is generated and set as a cookie otherwise.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessionIDFromRequest(r)
			if !ok {
				id = NewSessionID()
			}
			setSessionCookie(w, id, isDev)
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}

// IPFromRequest returns a normalized remote IP.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
