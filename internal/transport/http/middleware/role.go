package middleware

import (
	"log/slog"
	"net/http"
	"slices"
)

// RequireRole admits only callers whose bearer role is one of allowedRoles.
// It must run after Auth. Denials are logged for audit.
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(allowedRoles, claims.Role) {
				slog.Warn("role check denied", "user_id", claims.UserID, "role", claims.Role, "path", r.URL.Path)
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
