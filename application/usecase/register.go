package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/chirpnet/chirpnet/application/port/inbound"
	"github.com/chirpnet/chirpnet/application/port/outbound"
	"github.com/chirpnet/chirpnet/domain/entity"
	"github.com/chirpnet/chirpnet/infrastructure/service/logger"
)

// Register creates the credential record and the profile. No tokens are
// issued: the user logs in only after confirming their email address.
func (uc *AuthUseCase) Register(ctx context.Context, req inbound.RegisterRequest) (*entity.User, error) {
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	taken, err := uc.userRepository.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = uc.userRepository.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	userID := uuid.New().String()

	if err := uc.credentialStore.CreateUser(ctx, userID, req.Email, req.Password); err != nil {
		if errors.Is(err, outbound.ErrUserAlreadyExists) {
			return nil, ErrEmailTaken
		}
		uc.logger.Error(ctx, "Failed to create credential record", err, map[string]interface{}{
			"email": req.Email,
		})
		return nil, fmt.Errorf("failed to create credentials: %w", err)
	}

	// The credential store is consumed as an external collaborator; a
	// just-created record may not be readable immediately. Wait for it with a
	// bounded exponential backoff rather than an ad hoc sleep loop.
	if err := uc.awaitCredentialRecord(ctx, userID); err != nil {
		uc.logger.Error(ctx, "Credential record never became visible", err, map[string]interface{}{
			"user_id": userID,
		})
		uc.cleanupCredential(ctx, userID)
		return nil, fmt.Errorf("credential record not visible: %w", err)
	}

	user := entity.NewUser(userID, req.Username, req.Email, req.FirstName, req.LastName)
	if err := uc.userRepository.Create(ctx, user); err != nil {
		uc.cleanupCredential(ctx, userID)
		if errors.Is(err, outbound.ErrUserAlreadyExists) {
			return nil, ErrUsernameTaken
		}
		uc.logger.Error(ctx, "Failed to create profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "registration_successful", userID, "", true, map[string]interface{}{
		"username": req.Username,
	})

	return user, nil
}

// RequestPasswordReset responds identically whether or not the email is
// known, so the endpoint cannot be used for account enumeration. Failures
// are logged, never surfaced.
func (uc *AuthUseCase) RequestPasswordReset(ctx context.Context, req inbound.PasswordResetRequest) error {
	user, err := uc.userRepository.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, outbound.ErrUserNotFound) {
			uc.logger.Error(ctx, "Failed to look up reset target", err, nil)
		}
		return nil
	}

	logger.LogAuthEvent(ctx, uc.logger, "password_reset_requested", user.ID, "", true, nil)
	return nil
}

func (uc *AuthUseCase) awaitCredentialRecord(ctx context.Context, userID string) error {
	backoff := retry.WithMaxRetries(uint64(uc.registerRetryAttempts), retry.NewExponential(uc.registerRetryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := uc.credentialStore.EmailConfirmed(ctx, userID); err != nil {
			if errors.Is(err, outbound.ErrCredentialNotFound) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}

func (uc *AuthUseCase) cleanupCredential(ctx context.Context, userID string) {
	if err := uc.credentialStore.DeleteUser(ctx, userID); err != nil {
		uc.logger.Warn(ctx, "Failed to clean up credential record", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
