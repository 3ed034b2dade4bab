package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"mailkeep/internal/jwtauth"
	dErrors "mailkeep/pkg/domain-errors"
	"mailkeep/pkg/platform/httputil"
	"mailkeep/pkg/requestcontext"
)

// TokenValidator defines the interface for validating admin API tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtauth.Claims, error)
}

// RequireAdmin rejects requests that don't carry a bearer token with the
// admin privilege.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			if !claims.IsAdmin() {
				logger.WarnContext(ctx, "forbidden access - missing admin privilege",
					"request_id", requestID,
					"email", claims.Email,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin privilege required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
