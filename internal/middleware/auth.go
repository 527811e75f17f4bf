package middleware

import (
	"net/http"

	"order-service/internal/auth"
	"order-service/internal/logger"
	"order-service/internal/utils"

	"go.uber.org/zap"
)

// Auth resolves the caller from an access token issued by the user service.
// Requests without a token pass through anonymously; a token that fails
// verification is rejected with 401.
func Auth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := auth.ParseAccessToken(tokenStr, key)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("rejected access token", zap.Error(err))
				utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := utils.SetUserContext(r.Context(), identity.UserID, identity.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
