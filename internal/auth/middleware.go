package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// RequireRole accepts requests carrying a bearer token with at least role for
// the session named by the {id} route variable.
func (s *Service) RequireRole(role Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := s.bearerClaims(w, r)
			if !ok {
				return
			}
			if err := Authorize(claims, mux.Vars(r)["id"], role); err != nil {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthMiddleware accepts any valid token regardless of session.
func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.bearerClaims(w, r)
		if !ok {
			return
		}
		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) bearerClaims(w http.ResponseWriter, r *http.Request) (*Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
		return nil, false
	}

	claims, err := s.ValidateToken(parts[1])
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return nil, false
	}
	return claims, true
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}
