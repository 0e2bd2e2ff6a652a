package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clipshare/apiserver/internal/db"
	"github.com/clipshare/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) (*db.Pool[*sql.DB], sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return db.Ready(conn), mock
}

var userColumns = []string{"id", "email", "password_hash", "created_at", "updated_at"}

func TestUserRepository_GetByEmail_Found(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUserRepository(pool)

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT id, email, password_hash, created_at, updated_at\s+FROM users\s+WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("9b2f1c1e-6f59-4a53-a1f4-0d0b7f1f7a10", "a@x.com", "$2a$10$hash", now, now))

	user, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "9b2f1c1e-6f59-4a53-a1f4-0d0b7f1f7a10", user.ID)
	assert.Equal(t, "$2a$10$hash", user.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUserRepository(pool)

	mock.ExpectQuery(`(?s)FROM users\s+WHERE email = \$1`).
		WithArgs("ghost@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@x.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_GetByID_InvalidIDIsNotFound(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUserRepository(pool)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUserRepository(pool)

	mock.ExpectExec(`(?s)INSERT INTO users \(id, email, password_hash, created_at, updated_at\)`).
		WithArgs(sqlmock.AnyArg(), "a@x.com", "$2a$10$hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.Create(context.Background(), types.User{Email: "a@x.com", PasswordHash: "$2a$10$hash"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_UniqueViolation(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUserRepository(pool)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := repo.Create(context.Background(), types.User{Email: "a@x.com", PasswordHash: "h"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_Create_DBError(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewUserRepository(pool)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Create(context.Background(), types.User{Email: "a@x.com", PasswordHash: "h"})
	require.EqualError(t, err, "connection reset")
}

func TestUserRepository_PoolError(t *testing.T) {
	pool := db.NewPool(func(ctx context.Context) (*sql.DB, error) {
		return nil, errors.New("dial tcp: connection refused")
	}, nil)
	repo := NewUserRepository(pool)

	_, err := repo.GetByEmail(context.Background(), "a@x.com")
	require.EqualError(t, err, "dial tcp: connection refused")
}
