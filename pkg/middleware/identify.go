package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/brand-service/pkg/logger"
)

// Identity is the caller identity carried by a validated bearer token.
type Identity struct {
	UserID string
	Role   string
}

// IdentityValidator validates a raw bearer token and returns the identity it
// carries.
type IdentityValidator func(ctx context.Context, token string) (*Identity, error)

// Identify attributes requests to a caller. A valid bearer token stores the
// user id and role in the request context; a missing or invalid token is
// ignored and the request proceeds anonymously.
func Identify(validate IdentityValidator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			id, err := validate(r.Context(), token)
			if err != nil {
				l.DebugContext(r.Context(), "ignoring bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := logger.WithUserID(r.Context(), id.UserID)
			if id.Role != "" {
				ctx = logger.WithUserRole(ctx, id.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
