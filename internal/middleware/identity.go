package middleware

import (
	"net/http"
	"strings"

	"github.com/linxiaoyu/mindhaven/backend/internal/identity"
	"github.com/linxiaoyu/mindhaven/backend/pkg/utils"
)

// RequireIdentity resolves the bearer token on every request and stores the
// acting user id in the context. Requests without a resolvable identity are
// rejected before reaching any handler. The token may also arrive as a
// "token" query parameter for SSE and websocket clients that cannot set
// headers.
func RequireIdentity(resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, ok := resolver.Resolve(token)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
