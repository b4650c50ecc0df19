package middleware

import (
	"net/http"
	"strings"

	"github.com/bcnelson/sendernet-subscriptions/internal/auth"
)

// AdminAuth requires "Authorization: Bearer <adminToken>". An empty adminToken
// disables token access entirely.
func AdminAuth(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"code":401,"message":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				http.Error(w, `{"code":401,"message":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}
			if token == "" {
				http.Error(w, `{"code":401,"message":"empty token"}`, http.StatusUnauthorized)
				return
			}

			if adminToken == "" || !auth.ConstantTimeCompare(token, adminToken) {
				http.Error(w, `{"code":401,"message":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
