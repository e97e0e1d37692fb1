package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chirpnet/chirpnet/application/port/inbound"
	"github.com/chirpnet/chirpnet/application/port/outbound"
	"github.com/chirpnet/chirpnet/domain/entity"
	"github.com/chirpnet/chirpnet/infrastructure/service/logger"
	"github.com/chirpnet/chirpnet/infrastructure/service/ratelimit"
)

var (
	ErrInvalidCredentials     = errors.New("Invalid credentials")
	ErrAccountDeactivated     = errors.New("Account is deactivated")
	ErrEmailNotVerified       = errors.New("Please verify your email address before logging in")
	ErrTooManyAttempts        = errors.New("Too many login attempts. Please try again later")
	ErrRefreshTokenInvalid    = errors.New("Invalid or expired refresh token")
	ErrRefreshTokenRevoked    = errors.New("Invalid refresh token")
	ErrRefreshTokenExpired    = errors.New("Refresh token expired")
	ErrUserNotFoundOrInactive = errors.New("User not found or inactive")
	ErrWrongOldPassword       = errors.New("Current password is incorrect")
	ErrWeakPassword           = errors.New("Password must be at least 8 characters long")
	ErrUsernameTaken          = errors.New("Username already taken")
	ErrEmailTaken             = errors.New("Email already registered")
	ErrUserNotFound           = errors.New("User not found")
)

type AuthUseCase struct {
	userRepository         outbound.UserRepository
	refreshTokenRepository outbound.RefreshTokenRepository
	tokenService           outbound.TokenService
	credentialStore        outbound.CredentialStore
	rateLimitService       ratelimit.RateLimitService
	logger                 logger.Logger
	refreshTokenTTL        time.Duration

	rateLimitAttempts int
	rateLimitWindow   time.Duration
	blockDuration     time.Duration

	registerRetryAttempts  int
	registerRetryBaseDelay time.Duration
}

type Options struct {
	RefreshTokenTTL        time.Duration
	RateLimitAttempts      int
	RateLimitWindow        time.Duration
	BlockDuration          time.Duration
	RegisterRetryAttempts  int
	RegisterRetryBaseDelay time.Duration
}

func NewAuthUseCase(
	userRepo outbound.UserRepository,
	refreshTokenRepo outbound.RefreshTokenRepository,
	tokenService outbound.TokenService,
	credentialStore outbound.CredentialStore,
	rateLimitService ratelimit.RateLimitService,
	log logger.Logger,
	opts Options,
) inbound.AuthUseCase {
	if opts.RefreshTokenTTL == 0 {
		opts.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if opts.RateLimitAttempts == 0 {
		opts.RateLimitAttempts = 5
	}
	if opts.RateLimitWindow == 0 {
		opts.RateLimitWindow = 15 * time.Minute
	}
	if opts.BlockDuration == 0 {
		opts.BlockDuration = 30 * time.Minute
	}
	if opts.RegisterRetryAttempts == 0 {
		opts.RegisterRetryAttempts = 5
	}
	if opts.RegisterRetryBaseDelay == 0 {
		opts.RegisterRetryBaseDelay = 100 * time.Millisecond
	}
	return &AuthUseCase{
		userRepository:         userRepo,
		refreshTokenRepository: refreshTokenRepo,
		tokenService:           tokenService,
		credentialStore:        credentialStore,
		rateLimitService:       rateLimitService,
		logger:                 log,
		refreshTokenTTL:        opts.RefreshTokenTTL,
		rateLimitAttempts:      opts.RateLimitAttempts,
		rateLimitWindow:        opts.RateLimitWindow,
		blockDuration:          opts.BlockDuration,
		registerRetryAttempts:  opts.RegisterRetryAttempts,
		registerRetryBaseDelay: opts.RegisterRetryBaseDelay,
	}
}

func (uc *AuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	if err := uc.checkLoginRateLimit(ctx, req.ClientIP); err != nil {
		return nil, err
	}

	// Resolve the account through exactly one lookup path.
	user, err := uc.resolveAccount(ctx, req)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			uc.noteFailedLogin(ctx, req.ClientIP)
			logger.LogAuthEvent(ctx, uc.logger, "login_failed_unknown_account", "", req.ClientIP, false, map[string]interface{}{
				"email": req.Email,
			})
			return nil, ErrInvalidCredentials
		}
		uc.logger.Error(ctx, "Failed to resolve account", err, map[string]interface{}{
			"email": req.Email,
		})
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}

	if !user.IsActive {
		logger.LogAuthEvent(ctx, uc.logger, "login_failed_deactivated", user.ID, req.ClientIP, false, nil)
		return nil, ErrAccountDeactivated
	}

	// The credential store's confirmation flag is authoritative; the profile's
	// cached is_verified mirror is not consulted for this gate.
	confirmed, err := uc.credentialStore.EmailConfirmed(ctx, user.ID)
	if err != nil {
		if errors.Is(err, outbound.ErrCredentialNotFound) {
			uc.noteFailedLogin(ctx, req.ClientIP)
			return nil, ErrInvalidCredentials
		}
		uc.logger.Error(ctx, "Failed to check email confirmation", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("failed to check email confirmation: %w", err)
	}
	if !confirmed {
		logger.LogAuthEvent(ctx, uc.logger, "login_failed_unverified_email", user.ID, req.ClientIP, false, nil)
		return nil, ErrEmailNotVerified
	}

	if err := uc.credentialStore.VerifyPassword(ctx, user.Email, req.Password); err != nil {
		if errors.Is(err, outbound.ErrBadCredentials) {
			uc.noteFailedLogin(ctx, req.ClientIP)
			logger.LogAuthEvent(ctx, uc.logger, "login_failed_bad_password", user.ID, req.ClientIP, false, nil)
			return nil, ErrInvalidCredentials
		}
		uc.logger.Error(ctx, "Password verification error", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("password verification failed: %w", err)
	}

	// Best-effort side write: never fails the login.
	markVerified := !user.IsVerified
	if err := uc.userRepository.StampLastLogin(ctx, user.ID, markVerified); err != nil {
		uc.logger.Warn(ctx, "Failed to stamp last login", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	} else if markVerified {
		user.IsVerified = true
	}

	pair, err := uc.issueTokenPair(ctx, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "login_successful", user.ID, req.ClientIP, true, nil)

	return &inbound.LoginResponse{
		AccessToken:  pair.access,
		RefreshToken: pair.refresh,
		User:         user,
	}, nil
}

func (uc *AuthUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.RefreshResponse, error) {
	if req.RefreshToken == "" {
		return nil, ErrRefreshTokenInvalid
	}

	// Signature and expiry are checked by the codec before the ledger is
	// consulted, so garbage never reaches the database.
	staleClaims, err := uc.tokenService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		logger.LogSecurityEvent(ctx, uc.logger, "refresh_token_verification_failed", "MEDIUM", nil)
		return nil, ErrRefreshTokenInvalid
	}

	record, err := uc.refreshTokenRepository.FindByTokenAndUser(ctx, req.RefreshToken, staleClaims.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrRefreshTokenNotFound) {
			// Well-formed but revoked, rotated, or foreign. Reuse after
			// rotation lands here and is a token-leak signal.
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_token_not_in_ledger", "HIGH", map[string]interface{}{
				"user_id": staleClaims.UserID,
			})
			return nil, ErrRefreshTokenRevoked
		}
		uc.logger.Error(ctx, "Failed to look up refresh token", err, map[string]interface{}{
			"user_id": staleClaims.UserID,
		})
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if record.IsExpired() {
		if err := uc.refreshTokenRepository.DeleteByToken(ctx, req.RefreshToken); err != nil {
			uc.logger.Warn(ctx, "Failed to delete expired refresh token", map[string]interface{}{
				"user_id": record.UserID,
				"error":   err.Error(),
			})
		}
		return nil, ErrRefreshTokenExpired
	}

	// Re-validate account state: deactivation since issuance must fail the
	// refresh even though the token still verifies cryptographically.
	user, err := uc.userRepository.FindByID(ctx, staleClaims.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_for_missing_user", "HIGH", map[string]interface{}{
				"user_id": staleClaims.UserID,
			})
			return nil, ErrUserNotFoundOrInactive
		}
		uc.logger.Error(ctx, "Failed to load user for refresh", err, map[string]interface{}{
			"user_id": staleClaims.UserID,
		})
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		logger.LogSecurityEvent(ctx, uc.logger, "refresh_for_deactivated_user", "MEDIUM", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, ErrUserNotFoundOrInactive
	}

	// Rotate: delete the old row first, then insert the replacement. The
	// loser of a concurrent rotation finds the row gone and fails closed.
	if err := uc.refreshTokenRepository.DeleteByToken(ctx, req.RefreshToken); err != nil {
		uc.logger.Error(ctx, "Failed to delete rotated refresh token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	// New pair is minted from fresh account data, not the stale claims.
	pair, err := uc.issueTokenPair(ctx, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "token_refresh_successful", user.ID, "", true, nil)

	return &inbound.RefreshResponse{
		AccessToken:  pair.access,
		RefreshToken: pair.refresh,
	}, nil
}

func (uc *AuthUseCase) Logout(ctx context.Context, req inbound.LogoutRequest) error {
	if req.RefreshToken != "" {
		if err := uc.refreshTokenRepository.DeleteByToken(ctx, req.RefreshToken); err != nil {
			uc.logger.Error(ctx, "Failed to delete refresh token on logout", err, map[string]interface{}{
				"user_id": req.UserID,
			})
			return fmt.Errorf("failed to delete refresh token: %w", err)
		}
		logger.LogAuthEvent(ctx, uc.logger, "logout_successful", req.UserID, "", true, nil)
		return nil
	}

	// No specific token supplied: revoke every session the user has.
	if err := uc.refreshTokenRepository.DeleteAllForUser(ctx, req.UserID); err != nil {
		uc.logger.Error(ctx, "Failed to delete refresh tokens on logout", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	logger.LogAuthEvent(ctx, uc.logger, "logout_all_sessions", req.UserID, "", true, nil)
	return nil
}

func (uc *AuthUseCase) ChangePassword(ctx context.Context, req inbound.ChangePasswordRequest) error {
	if len(req.NewPassword) < 8 {
		return ErrWeakPassword
	}

	if err := uc.credentialStore.VerifyPassword(ctx, req.Email, req.OldPassword); err != nil {
		if errors.Is(err, outbound.ErrBadCredentials) {
			logger.LogAuthEvent(ctx, uc.logger, "change_password_wrong_old", req.UserID, "", false, nil)
			return ErrWrongOldPassword
		}
		return fmt.Errorf("failed to verify current password: %w", err)
	}

	if err := uc.credentialStore.UpdatePassword(ctx, req.UserID, req.NewPassword); err != nil {
		uc.logger.Error(ctx, "Failed to update password", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return fmt.Errorf("failed to update password: %w", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "password_changed", req.UserID, "", true, nil)
	return nil
}

func (uc *AuthUseCase) Me(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepository.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

type tokenPair struct {
	access  string
	refresh string
}

// issueTokenPair mints both tokens from one claim set and appends the
// refresh record to the ledger.
func (uc *AuthUseCase) issueTokenPair(ctx context.Context, userID, email, role string) (*tokenPair, error) {
	claims := outbound.TokenClaims{UserID: userID, Email: email, Role: role}

	access, err := uc.tokenService.GenerateAccessToken(claims)
	if err != nil {
		uc.logger.Error(ctx, "Failed to generate access token", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := uc.tokenService.GenerateRefreshToken(claims)
	if err != nil {
		uc.logger.Error(ctx, "Failed to generate refresh token", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := time.Now().Add(uc.refreshTokenTTL)
	if err := uc.refreshTokenRepository.Insert(ctx, userID, refresh, expiresAt); err != nil {
		uc.logger.Error(ctx, "Failed to persist refresh token", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &tokenPair{access: access, refresh: refresh}, nil
}

func (uc *AuthUseCase) resolveAccount(ctx context.Context, req inbound.LoginRequest) (*entity.User, error) {
	if req.Email != "" {
		return uc.userRepository.FindByEmail(ctx, req.Email)
	}
	return uc.userRepository.FindByUsername(ctx, req.Username)
}

func (uc *AuthUseCase) checkLoginRateLimit(ctx context.Context, ip string) error {
	if uc.rateLimitService == nil || ip == "" {
		return nil
	}

	key := "ip:" + ip

	blocked, err := uc.rateLimitService.IsBlocked(ctx, key)
	if err != nil {
		uc.logger.Warn(ctx, "Failed to check IP block status", map[string]interface{}{
			"ip":    ip,
			"error": err.Error(),
		})
	}
	if blocked {
		logger.LogSecurityEvent(ctx, uc.logger, "blocked_ip_login_attempt", "MEDIUM", map[string]interface{}{
			"ip": ip,
		})
		return ErrTooManyAttempts
	}

	allowed, err := uc.rateLimitService.CheckLimit(ctx, key, uc.rateLimitAttempts, uc.rateLimitWindow)
	if err != nil {
		uc.logger.Warn(ctx, "Failed to check rate limit", map[string]interface{}{
			"ip":    ip,
			"error": err.Error(),
		})
		return nil
	}
	if !allowed {
		if err := uc.rateLimitService.Block(ctx, key, uc.blockDuration, "login rate limit exceeded"); err != nil {
			uc.logger.Warn(ctx, "Failed to block IP", map[string]interface{}{
				"ip":    ip,
				"error": err.Error(),
			})
		}
		logger.LogSecurityEvent(ctx, uc.logger, "ip_rate_limit_exceeded", "HIGH", map[string]interface{}{
			"ip": ip,
		})
		return ErrTooManyAttempts
	}
	return nil
}

func (uc *AuthUseCase) noteFailedLogin(ctx context.Context, ip string) {
	if uc.rateLimitService == nil || ip == "" {
		return
	}
	if err := uc.rateLimitService.Increment(ctx, "ip:"+ip, uc.rateLimitWindow); err != nil {
		uc.logger.Warn(ctx, "Failed to increment failed-login counter", map[string]interface{}{
			"ip":    ip,
			"error": err.Error(),
		})
	}
}
