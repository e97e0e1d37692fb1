package handler

import (
	"errors"
	"net/http"

	"github.com/chirpnet/chirpnet/application/port/inbound"
	"github.com/chirpnet/chirpnet/application/usecase"
	"github.com/chirpnet/chirpnet/infrastructure/http/middleware"
	"github.com/chirpnet/chirpnet/infrastructure/http/response"
	"github.com/chirpnet/chirpnet/infrastructure/service/logger"
)

type UserHandler struct {
	authUseCase inbound.AuthUseCase
	logger      logger.Logger
}

func NewUserHandler(authUseCase inbound.AuthUseCase, log logger.Logger) *UserHandler {
	return &UserHandler{
		authUseCase: authUseCase,
		logger:      log,
	}
}

// Me returns the profile for the authenticated user, re-read from storage so
// role or deactivation changes show up before the access token expires.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	user, err := h.authUseCase.Me(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		h.logger.Error(r.Context(), "Failed to load user profile", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		response.InternalServerError(w, "Failed to load user profile")
		return
	}

	response.JSON(w, http.StatusOK, user)
}
