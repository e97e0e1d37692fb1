package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/chirpnet/chirpnet/application/port/outbound"
	"github.com/chirpnet/chirpnet/domain/entity"
	"github.com/chirpnet/chirpnet/infrastructure/http/response"
)

type authUserKey struct{}

const AccessTokenCookie = "access_token"

// AuthMiddleware is the single authorization point: RequireAuth for any
// authenticated endpoint, RequireAdmin for admin-scoped endpoints. Handlers
// never re-check roles themselves.
type AuthMiddleware struct {
	tokenService outbound.TokenService
}

func NewAuthMiddleware(tokenService outbound.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenService: tokenService}
}

func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, errMessage := m.authenticate(r)
		if claims == nil {
			response.Unauthorized(w, errMessage)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserClaims(r.Context(), claims)))
	}
}

func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserClaims(r.Context())
		if claims == nil || claims.Role != entity.RoleAdmin {
			response.Forbidden(w, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate prefers the Authorization header and falls back to the
// access_token cookie. Verification is local; the ledger is never consulted
// for access tokens.
func (m *AuthMiddleware) authenticate(r *http.Request) (*outbound.TokenClaims, string) {
	var token string

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return nil, "Invalid authorization header format"
		}
		token = parts[1]
	} else if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		token = cookie.Value
	}

	if token == "" {
		return nil, "No authentication token provided"
	}

	claims, err := m.tokenService.ValidateAccessToken(token)
	if err != nil {
		return nil, "Invalid or expired token"
	}
	return claims, ""
}

func WithUserClaims(ctx context.Context, claims *outbound.TokenClaims) context.Context {
	return context.WithValue(ctx, authUserKey{}, claims)
}

func GetUserClaims(ctx context.Context) *outbound.TokenClaims {
	if claims, ok := ctx.Value(authUserKey{}).(*outbound.TokenClaims); ok {
		return claims
	}
	return nil
}
