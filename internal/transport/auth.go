package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/retroloop/retroloop/internal/identity"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type principalKey struct{}

// PrincipalResolver resolves an issued principal id to its user record.
type PrincipalResolver interface {
	Resolve(ctx context.Context, id string) (*identity.User, error)
}

// PrincipalFromContext returns the authenticated user from context, if present.
func PrincipalFromContext(ctx context.Context) (*identity.User, bool) {
	user, ok := ctx.Value(principalKey{}).(*identity.User)
	return user, ok
}

// AuthMiddleware enforces principal authentication. The bearer token is the
// principal id issued by the identity service; websocket clients, which
// cannot set headers from a browser, may pass it as the access_token query
// parameter instead.
func AuthMiddleware(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("access_token")
			}
			if token == "" {
				http.Error(w, "missing principal token", http.StatusUnauthorized)
				return
			}

			user, err := resolver.Resolve(r.Context(), token)
			if err != nil || user == nil {
				http.Error(w, "invalid principal token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
