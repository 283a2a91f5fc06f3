package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/meridian-credit/meridian/internal/platform/httpx"
	"github.com/meridian-credit/meridian/internal/shared"
)

// CookieName is the fallback transport for the session token when the client
// does not send an Authorization header.
const CookieName = "meridian_session"

// Middleware resolves the session token and injects the actor into context.
type Middleware struct {
	Sessions *SessionManager
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid session.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(CookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}

		actor, err := m.Sessions.Get(r.Context(), token)
		if err != nil {
			if m.Logger != nil && !errors.Is(err, shared.ErrUnauthorized) {
				m.Logger.Error("session lookup failed", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session expired or invalid")
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
