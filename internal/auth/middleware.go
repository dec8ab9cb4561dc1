// internal/auth/middleware.go
package auth

import (
	"net/http"
	"strings"

	"classquiz/internal/apperr"
	"classquiz/internal/httpx"
	"classquiz/internal/models"
)

// Middleware resolves the bearer token once per request and stores the
// Principal in the request context. Websocket clients may pass the token
// as ?token= since browsers cannot set headers on upgrades.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
				httpx.Error(w, r, apperr.New(apperr.KindInvalidCredential, "invalid token format"))
				return
			}
			tokenString = bearerToken[1]
		} else {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			httpx.Error(w, r, apperr.New(apperr.KindUnauthenticated, "authorization header required"))
			return
		}

		principal, err := s.Resolve(tokenString)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				httpx.Error(w, r, apperr.New(apperr.KindUnauthenticated, "authentication required"))
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Error(w, r, apperr.Forbidden("this action requires role "+string(roles[0])))
		})
	}
}
