package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// RequireManager lets only admin-mode callers through
func RequireManager(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{RoleManager}, logger)
}

// RequireRole answers 403 unless AuthMiddleware put one of roles in the
// context
func RequireRole(roles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := GetRole(r.Context())
			if _, ok := allowed[role]; !ok {
				subject, _ := GetSubject(r.Context())
				logger.Warn("Forbidden admin request",
					zap.String("subject", subject),
					zap.String("role", role),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
