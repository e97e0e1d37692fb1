package outbound

import (
	"context"
	"errors"

	"github.com/chirpnet/chirpnet/domain/entity"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
	// StampLastLogin sets last_login to now; when markVerified is true it also
	// flips the cached is_verified mirror. Best-effort from the caller's side.
	StampLastLogin(ctx context.Context, userID string, markVerified bool) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}
