package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chirpnet/chirpnet/application/port/inbound"
	"github.com/chirpnet/chirpnet/application/port/outbound"
	"github.com/chirpnet/chirpnet/application/usecase"
	"github.com/chirpnet/chirpnet/domain/entity"
	"github.com/chirpnet/chirpnet/infrastructure/http/middleware"
	"github.com/chirpnet/chirpnet/infrastructure/service/logger"
)

// stubAuthUseCase lets each test script the outcome per operation.
type stubAuthUseCase struct {
	loginFn          func(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error)
	refreshFn        func(ctx context.Context, req inbound.RefreshRequest) (*inbound.RefreshResponse, error)
	logoutFn         func(ctx context.Context, req inbound.LogoutRequest) error
	changePasswordFn func(ctx context.Context, req inbound.ChangePasswordRequest) error
	registerFn       func(ctx context.Context, req inbound.RegisterRequest) (*entity.User, error)
	passwordResetFn  func(ctx context.Context, req inbound.PasswordResetRequest) error
	meFn             func(ctx context.Context, userID string) (*entity.User, error)
}

func (s *stubAuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	return s.loginFn(ctx, req)
}

func (s *stubAuthUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.RefreshResponse, error) {
	return s.refreshFn(ctx, req)
}

func (s *stubAuthUseCase) Logout(ctx context.Context, req inbound.LogoutRequest) error {
	return s.logoutFn(ctx, req)
}

func (s *stubAuthUseCase) ChangePassword(ctx context.Context, req inbound.ChangePasswordRequest) error {
	return s.changePasswordFn(ctx, req)
}

func (s *stubAuthUseCase) Register(ctx context.Context, req inbound.RegisterRequest) (*entity.User, error) {
	return s.registerFn(ctx, req)
}

func (s *stubAuthUseCase) RequestPasswordReset(ctx context.Context, req inbound.PasswordResetRequest) error {
	return s.passwordResetFn(ctx, req)
}

func (s *stubAuthUseCase) Me(ctx context.Context, userID string) (*entity.User, error) {
	return s.meFn(ctx, userID)
}

func postJSON(path string, body interface{}) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode error envelope: %v", err)
	}
	return envelope.Error
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		stub := &stubAuthUseCase{
			loginFn: func(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
				assert.Equal(t, "alice@example.com", req.Email)
				return &inbound.LoginResponse{
					AccessToken:  "access-token",
					RefreshToken: "refresh-token",
					User:         entity.NewUser("u1", "alice", req.Email, "", ""),
				}, nil
			},
		}
		h := NewAuthHandler(stub, logger.Nop())

		rec := httptest.NewRecorder()
		h.Login(rec, postJSON("/api/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "correct-horse",
		}))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp inbound.LoginResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "access-token", resp.AccessToken)
		assert.Equal(t, "refresh-token", resp.RefreshToken)
		assert.Equal(t, "u1", resp.User.ID)
	})

	t.Run("MissingFields", func(t *testing.T) {
		h := NewAuthHandler(&stubAuthUseCase{}, logger.Nop())

		rec := httptest.NewRecorder()
		h.Login(rec, postJSON("/api/auth/login", map[string]string{"email": "alice@example.com"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		stub := &stubAuthUseCase{
			loginFn: func(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
				return nil, usecase.ErrInvalidCredentials
			},
		}
		h := NewAuthHandler(stub, logger.Nop())

		rec := httptest.NewRecorder()
		h.Login(rec, postJSON("/api/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "wrong",
		}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", errorMessage(t, rec))
	})

	t.Run("DeactivatedAccount", func(t *testing.T) {
		stub := &stubAuthUseCase{
			loginFn: func(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
				return nil, usecase.ErrAccountDeactivated
			},
		}
		h := NewAuthHandler(stub, logger.Nop())

		rec := httptest.NewRecorder()
		h.Login(rec, postJSON("/api/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "correct-horse",
		}))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("RateLimited", func(t *testing.T) {
		stub := &stubAuthUseCase{
			loginFn: func(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
				return nil, usecase.ErrTooManyAttempts
			},
		}
		h := NewAuthHandler(stub, logger.Nop())

		rec := httptest.NewRecorder()
		h.Login(rec, postJSON("/api/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "correct-horse",
		}))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestAuthHandlerRefresh(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		stub := &stubAuthUseCase{
			refreshFn: func(ctx context.Context, req inbound.RefreshRequest) (*inbound.RefreshResponse, error) {
				assert.Equal(t, "old-refresh", req.RefreshToken)
				return &inbound.RefreshResponse{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
			},
		}
		h := NewAuthHandler(stub, logger.Nop())

		rec := httptest.NewRecorder()
		h.Refresh(rec, postJSON("/api/auth/token/refresh", map[string]string{"refresh_token": "old-refresh"}))

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp inbound.RefreshResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "new-refresh", resp.RefreshToken)
	})

	t.Run("MissingToken", func(t *testing.T) {
		h := NewAuthHandler(&stubAuthUseCase{}, logger.Nop())

		rec := httptest.NewRecorder()
		h.Refresh(rec, postJSON("/api/auth/token/refresh", map[string]string{}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("RevokedToken", func(t *testing.T) {
		stub := &stubAuthUseCase{
			refreshFn: func(ctx context.Context, req inbound.RefreshRequest) (*inbound.RefreshResponse, error) {
				return nil, usecase.ErrRefreshTokenRevoked
			},
		}
		h := NewAuthHandler(stub, logger.Nop())

		rec := httptest.NewRecorder()
		h.Refresh(rec, postJSON("/api/auth/token/refresh", map[string]string{"refresh_token": "stolen"}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandlerLogout(t *testing.T) {
	claims := &outbound.TokenClaims{UserID: "u1", Email: "alice@example.com", Role: entity.RoleUser}

	t.Run("SpecificSession", func(t *testing.T) {
		var got inbound.LogoutRequest
		stub := &stubAuthUseCase{
			logoutFn: func(ctx context.Context, req inbound.LogoutRequest) error {
				got = req
				return nil
			},
		}
		h := NewAuthHandler(stub, logger.Nop())

		req := postJSON("/api/auth/logout", map[string]string{"refresh_token": "refresh-a"})
		req = req.WithContext(middleware.WithUserClaims(req.Context(), claims))
		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "refresh-a", got.RefreshToken)
		assert.Equal(t, "u1", got.UserID)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		h := NewAuthHandler(&stubAuthUseCase{}, logger.Nop())

		rec := httptest.NewRecorder()
		h.Logout(rec, postJSON("/api/auth/logout", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandlerRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		stub := &stubAuthUseCase{
			registerFn: func(ctx context.Context, req inbound.RegisterRequest) (*entity.User, error) {
				return entity.NewUser("u2", req.Username, req.Email, req.FirstName, req.LastName), nil
			},
		}
		h := NewAuthHandler(stub, logger.Nop())

		rec := httptest.NewRecorder()
		h.Register(rec, postJSON("/api/auth/register", map[string]string{
			"email":    "bob@example.com",
			"username": "bob",
			"password": "secret-password",
		}))

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		h := NewAuthHandler(&stubAuthUseCase{}, logger.Nop())

		rec := httptest.NewRecorder()
		h.Register(rec, postJSON("/api/auth/register", map[string]string{
			"email":    "not-an-email",
			"username": "bob",
			"password": "secret-password",
		}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		stub := &stubAuthUseCase{
			registerFn: func(ctx context.Context, req inbound.RegisterRequest) (*entity.User, error) {
				return nil, usecase.ErrUsernameTaken
			},
		}
		h := NewAuthHandler(stub, logger.Nop())

		rec := httptest.NewRecorder()
		h.Register(rec, postJSON("/api/auth/register", map[string]string{
			"email":    "bob@example.com",
			"username": "bob",
			"password": "secret-password",
		}))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAuthHandlerPasswordReset(t *testing.T) {
	// Response must not depend on whether the account exists.
	h := NewAuthHandler(&stubAuthUseCase{
		passwordResetFn: func(ctx context.Context, req inbound.PasswordResetRequest) error {
			return nil
		},
	}, logger.Nop())

	for _, email := range []string{"known@example.com", "unknown@example.com"} {
		rec := httptest.NewRecorder()
		h.PasswordReset(rec, postJSON("/api/auth/password-reset", map[string]string{"email": email}))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "If the email exists")
	}
}

func TestUserHandlerMe(t *testing.T) {
	claims := &outbound.TokenClaims{UserID: "u1", Email: "alice@example.com", Role: entity.RoleUser}

	t.Run("Success", func(t *testing.T) {
		stub := &stubAuthUseCase{
			meFn: func(ctx context.Context, userID string) (*entity.User, error) {
				assert.Equal(t, "u1", userID)
				return entity.NewUser("u1", "alice", "alice@example.com", "", ""), nil
			},
		}
		h := NewUserHandler(stub, logger.Nop())

		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req = req.WithContext(middleware.WithUserClaims(req.Context(), claims))
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var user entity.User
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		h := NewUserHandler(&stubAuthUseCase{}, logger.Nop())

		rec := httptest.NewRecorder()
		h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("UserGone", func(t *testing.T) {
		stub := &stubAuthUseCase{
			meFn: func(ctx context.Context, userID string) (*entity.User, error) {
				return nil, usecase.ErrUserNotFound
			},
		}
		h := NewUserHandler(stub, logger.Nop())

		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req = req.WithContext(middleware.WithUserClaims(req.Context(), claims))
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
