package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chirpnet/chirpnet/application/port/outbound"
	"github.com/chirpnet/chirpnet/domain/entity"
	"github.com/chirpnet/chirpnet/infrastructure/service/token"
)

func newAuthTestSetup(t *testing.T) (*AuthMiddleware, *token.JWTService) {
	t.Helper()
	tokenService, err := token.NewJWTService("test-access-secret", "test-refresh-secret", 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create token service: %v", err)
	}
	return NewAuthMiddleware(tokenService), tokenService
}

func accessTokenFor(t *testing.T, tokenService *token.JWTService, role string) string {
	t.Helper()
	tokenString, err := tokenService.GenerateAccessToken(outbound.TokenClaims{
		UserID: "u1",
		Email:  "alice@example.com",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return tokenString
}

func TestRequireAuth(t *testing.T) {
	middleware, tokenService := newAuthTestSetup(t)

	handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserClaims(r.Context())
		if claims == nil || claims.UserID != "u1" {
			t.Errorf("Expected claims for u1 in context, got %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("BearerHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, tokenService, entity.RoleUser))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("CookieFallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: accessTokenFor(t, tokenService, entity.RoleUser)})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("NoToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("InvalidToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("RefreshTokenRejected", func(t *testing.T) {
		refreshString, err := tokenService.GenerateRefreshToken(outbound.TokenClaims{UserID: "u1"})
		if err != nil {
			t.Fatalf("Failed to generate refresh token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+refreshString)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for refresh token on protected route, got %d", rec.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	middleware, tokenService := newAuthTestSetup(t)

	reached := false
	handler := middleware.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	t.Run("UserRoleForbidden", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, tokenService, entity.RoleUser))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", rec.Code)
		}
		if reached {
			t.Error("Handler must not run for non-admin callers")
		}
	})

	t.Run("AdminRoleAllowed", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, tokenService, entity.RoleAdmin))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
		if !reached {
			t.Error("Handler should run for admin callers")
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})
}
