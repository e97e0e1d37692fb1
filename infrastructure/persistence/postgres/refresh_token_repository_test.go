package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/chirpnet/chirpnet/application/port/outbound"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, outbound.RefreshTokenRepository, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to open sqlmock: %v", err)
	}
	return mock, NewRefreshTokenRepository(db), func() { db.Close() }
}

func TestRefreshTokenRepositoryInsert(t *testing.T) {
	mock, repo, closeDB := newMockDB(t)
	defer closeDB()

	expiresAt := time.Now().Add(7 * 24 * time.Hour)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs("token-a", "u1", expiresAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Insert(context.Background(), "u1", "token-a", expiresAt); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRefreshTokenRepositoryFindByTokenAndUser(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mock, repo, closeDB := newMockDB(t)
		defer closeDB()

		now := time.Now()
		expiresAt := now.Add(time.Hour)

		mock.ExpectQuery(`SELECT token, user_id, expires_at, created_at`).
			WithArgs("token-a", "u1").
			WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "expires_at", "created_at"}).
				AddRow("token-a", "u1", expiresAt, now))

		rt, err := repo.FindByTokenAndUser(context.Background(), "token-a", "u1")
		if err != nil {
			t.Fatalf("FindByTokenAndUser failed: %v", err)
		}
		if rt.Token != "token-a" || rt.UserID != "u1" {
			t.Errorf("Unexpected row: %+v", rt)
		}
		if rt.IsExpired() {
			t.Error("Row should not be expired")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		mock, repo, closeDB := newMockDB(t)
		defer closeDB()

		mock.ExpectQuery(`SELECT token, user_id, expires_at, created_at`).
			WithArgs("token-unknown", "u1").
			WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "expires_at", "created_at"}))

		_, err := repo.FindByTokenAndUser(context.Background(), "token-unknown", "u1")
		if !errors.Is(err, outbound.ErrRefreshTokenNotFound) {
			t.Errorf("Expected ErrRefreshTokenNotFound, got %v", err)
		}
	})
}

func TestRefreshTokenRepositoryDeleteByToken(t *testing.T) {
	mock, repo, closeDB := newMockDB(t)
	defer closeDB()

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE token = \$1`).
		WithArgs("token-a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteByToken(context.Background(), "token-a"); err != nil {
		t.Fatalf("DeleteByToken failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRefreshTokenRepositoryDeleteAllForUser(t *testing.T) {
	mock, repo, closeDB := newMockDB(t)
	defer closeDB()

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteAllForUser(context.Background(), "u1"); err != nil {
		t.Fatalf("DeleteAllForUser failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRefreshTokenRepositoryDeleteExpired(t *testing.T) {
	mock, repo, closeDB := newMockDB(t)
	defer closeDB()

	before := time.Now()

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE expires_at < \$1`).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 42))

	removed, err := repo.DeleteExpired(context.Background(), before)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if removed != 42 {
		t.Errorf("Expected 42 removed, got %d", removed)
	}
}
