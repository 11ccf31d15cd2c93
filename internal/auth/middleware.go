package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const adminContextKey contextKey = "admin"

// RequireAdmin validates the bearer token on admin routes and stores the
// claims in the request context. The login endpoint itself is exempt.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/admin/login" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized - No token provided", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "Unauthorized - Invalid token format", http.StatusUnauthorized)
			return
		}

		claims, err := ValidateToken(tokenString)
		if err != nil {
			if err == ErrExpiredToken {
				http.Error(w, "Unauthorized - Token expired", http.StatusUnauthorized)
			} else {
				http.Error(w, "Unauthorized - Invalid token", http.StatusUnauthorized)
			}
			return
		}

		ctx := context.WithValue(r.Context(), adminContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminFromContext retrieves admin claims from a request context.
func AdminFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(adminContextKey).(*Claims)
	return claims, ok
}
