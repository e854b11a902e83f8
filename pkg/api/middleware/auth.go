// Package middleware provides HTTP middleware for the preloadd API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/localix/preloadd/internal/logger"
	"github.com/localix/preloadd/pkg/api/auth"
	"github.com/localix/preloadd/pkg/api/handlers"
)

type contextKey struct{}

// GetClaimsFromContext returns the JWT claims stored by JWTAuth, or nil.
// Always nil when the API runs without a JWT secret.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(contextKey{}).(*auth.Claims)
	return claims
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
// Event streams opened by browsers cannot set headers, so an access_token
// query parameter is accepted on GET requests as well.
func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, _ := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", false
		}
		return token, true
	}
	if r.Method == http.MethodGet {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// JWTAuth validates the bearer token and stores its claims in the request
// context. Missing or invalid tokens get a 401 problem response.
func JWTAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				handlers.Unauthorized(w, "Authorization header required")
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				logger.Debug("API token rejected",
					logger.KeyRequestID, chimw.GetReqID(r.Context()),
					logger.KeyError, err)
				handlers.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects viewer tokens. It must run after JWTAuth.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				handlers.Unauthorized(w, "Authentication required")
				return
			}
			if !claims.IsAdmin() {
				logger.Debug("API request forbidden",
					logger.KeyRequestID, chimw.GetReqID(r.Context()),
					"subject", claims.Subject,
					"path", r.URL.Path)
				handlers.Forbidden(w, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
