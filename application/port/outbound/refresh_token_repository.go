package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/chirpnet/chirpnet/domain/entity"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// RefreshTokenRepository is the persisted ledger of outstanding refresh
// tokens, keyed by the token string. Only the session issuer, the refresh
// rotation and the logout path write to it.
type RefreshTokenRepository interface {
	Insert(ctx context.Context, userID, token string, expiresAt time.Time) error
	FindByTokenAndUser(ctx context.Context, token, userID string) (*entity.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
