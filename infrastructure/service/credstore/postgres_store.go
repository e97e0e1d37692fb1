// Package credstore is the adapter for the account/credential store. It owns
// the auth_credentials table: password hashes and the authoritative
// email-confirmation state live here and nowhere else.
package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/chirpnet/chirpnet/application/port/outbound"
)

type PostgresStore struct {
	db   *sql.DB
	cost int
}

func NewPostgresStore(db *sql.DB, bcryptCost int) *PostgresStore {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &PostgresStore{db: db, cost: bcryptCost}
}

func (s *PostgresStore) VerifyPassword(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return outbound.ErrBadCredentials
	}

	var hash string
	query := `SELECT password_hash FROM auth_credentials WHERE email = $1`
	err := s.db.QueryRowContext(ctx, query, email).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unknown email and wrong password must be indistinguishable.
			return outbound.ErrBadCredentials
		}
		return fmt.Errorf("failed to load credential record: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return outbound.ErrBadCredentials
	}
	return nil
}

func (s *PostgresStore) EmailConfirmed(ctx context.Context, userID string) (bool, error) {
	var confirmedAt sql.NullTime
	query := `SELECT email_confirmed_at FROM auth_credentials WHERE user_id = $1`
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&confirmedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, outbound.ErrCredentialNotFound
		}
		return false, fmt.Errorf("failed to load credential record: %w", err)
	}
	return confirmedAt.Valid, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, userID, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO auth_credentials (user_id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, userID, email, string(hash), time.Now()); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return outbound.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create credential record: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	query := `UPDATE auth_credentials SET password_hash = $1 WHERE user_id = $2`
	result, err := s.db.ExecContext(ctx, query, string(hash), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return outbound.ErrCredentialNotFound
	}
	return nil
}

func (s *PostgresStore) ConfirmEmail(ctx context.Context, userID string) error {
	query := `UPDATE auth_credentials SET email_confirmed_at = $1 WHERE user_id = $2 AND email_confirmed_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), userID); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	query := `DELETE FROM auth_credentials WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete credential record: %w", err)
	}
	return nil
}
