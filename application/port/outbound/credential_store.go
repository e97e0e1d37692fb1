package outbound

import (
	"context"
	"errors"
)

var (
	ErrBadCredentials     = errors.New("bad credentials")
	ErrCredentialNotFound = errors.New("credential record not found")
)

// CredentialStore holds hashed passwords and the authoritative
// email-confirmation state. Password hashes never leave it; verification is
// delegated rather than comparing hashes in the caller.
type CredentialStore interface {
	// VerifyPassword checks email+password. Returns ErrBadCredentials on
	// mismatch or unknown email, indistinguishably.
	VerifyPassword(ctx context.Context, email, password string) error
	// EmailConfirmed reports the authoritative confirmation flag for the user.
	EmailConfirmed(ctx context.Context, userID string) (bool, error)
	CreateUser(ctx context.Context, userID, email, password string) error
	UpdatePassword(ctx context.Context, userID, newPassword string) error
	ConfirmEmail(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, userID string) error
}
