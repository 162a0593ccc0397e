package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/yuzvak/storefront-service/internal/config"
	"github.com/yuzvak/storefront-service/internal/pkg/generator"
)

type sessionKey struct{}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionID returns the session id placed on ctx by the session middleware,
// or "" outside a session.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// NewSessionMiddleware makes sure every request carries a session id. A missing
// or malformed cookie is replaced by a freshly issued id.
func NewSessionMiddleware(cfg config.SessionConfig, ids *generator.SessionIDGenerator) func(http.Handler) http.Handler {
	maxAge := int(cfg.TTL() / time.Second)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string
			if cookie, err := r.Cookie(cfg.CookieName); err == nil && generator.ValidSessionID(cookie.Value) {
				sessionID = cookie.Value
			} else {
				sessionID = ids.NewSessionID()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   maxAge,
				HttpOnly: true,
				Secure:   cfg.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}
