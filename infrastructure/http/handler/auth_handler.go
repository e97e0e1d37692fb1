package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/chirpnet/chirpnet/application/port/inbound"
	"github.com/chirpnet/chirpnet/application/usecase"
	"github.com/chirpnet/chirpnet/infrastructure/http/middleware"
	"github.com/chirpnet/chirpnet/infrastructure/http/response"
	"github.com/chirpnet/chirpnet/infrastructure/http/validator"
	"github.com/chirpnet/chirpnet/infrastructure/service/logger"
)

type AuthHandler struct {
	authUseCase inbound.AuthUseCase
	logger      logger.Logger
}

func NewAuthHandler(authUseCase inbound.AuthUseCase, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		logger:      log,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req inbound.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if req.Password == "" || (req.Email == "" && req.Username == "") {
		response.BadRequest(w, "Email or username and password are required")
		return
	}
	req.ClientIP = clientIP(r)

	resp, err := h.authUseCase.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			response.Unauthorized(w, err.Error())
		case errors.Is(err, usecase.ErrAccountDeactivated),
			errors.Is(err, usecase.ErrEmailNotVerified):
			response.Forbidden(w, err.Error())
		case errors.Is(err, usecase.ErrTooManyAttempts):
			response.TooManyRequests(w, err.Error())
		default:
			h.logger.Error(r.Context(), "Login failed", err, nil)
			response.InternalServerError(w, "Login failed")
		}
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req inbound.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		response.BadRequest(w, "Refresh token is required")
		return
	}

	resp, err := h.authUseCase.Refresh(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrRefreshTokenInvalid),
			errors.Is(err, usecase.ErrRefreshTokenRevoked),
			errors.Is(err, usecase.ErrRefreshTokenExpired),
			errors.Is(err, usecase.ErrUserNotFoundOrInactive):
			response.Unauthorized(w, err.Error())
		default:
			h.logger.Error(r.Context(), "Token refresh failed", err, nil)
			response.InternalServerError(w, "Token refresh failed")
		}
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

// Logout revokes the caller's refresh tokens. With a refresh_token in the
// body only that session ends; without one every session for the user ends.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req inbound.LogoutRequest
	if r.Body != nil {
		// Body is optional; decode errors mean "log out everywhere".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	req.UserID = claims.UserID

	if err := h.authUseCase.Logout(r.Context(), req); err != nil {
		h.logger.Error(r.Context(), "Logout failed", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		response.InternalServerError(w, "Logout failed")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req inbound.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		response.BadRequest(w, "Current and new passwords are required")
		return
	}
	req.UserID = claims.UserID
	req.Email = claims.Email

	if err := h.authUseCase.ChangePassword(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, usecase.ErrWeakPassword):
			response.BadRequest(w, err.Error())
		case errors.Is(err, usecase.ErrWrongOldPassword):
			response.Unauthorized(w, err.Error())
		default:
			h.logger.Error(r.Context(), "Password change failed", err, map[string]interface{}{
				"user_id": claims.UserID,
			})
			response.InternalServerError(w, "Password change failed")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req inbound.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := validator.ValidateEmail(req.Email); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if err := validator.ValidateUsername(req.Username); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	user, err := h.authUseCase.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrWeakPassword):
			response.BadRequest(w, err.Error())
		case errors.Is(err, usecase.ErrUsernameTaken),
			errors.Is(err, usecase.ErrEmailTaken):
			response.Conflict(w, err.Error())
		default:
			h.logger.Error(r.Context(), "Registration failed", err, nil)
			response.InternalServerError(w, "Registration failed")
		}
		return
	}

	response.JSON(w, http.StatusCreated, user)
}

// PasswordReset answers identically whether or not the email exists.
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req inbound.PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.authUseCase.RequestPasswordReset(r.Context(), req); err != nil {
		h.logger.Error(r.Context(), "Password reset request failed", err, nil)
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"message": "If the email exists, a reset link has been sent",
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
