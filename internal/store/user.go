package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/clipshare/apiserver/internal/db"
	"github.com/clipshare/apiserver/types"
	"github.com/google/uuid"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	pool *db.Pool[*sql.DB]
}

func NewUserRepository(pool *db.Pool[*sql.DB]) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.User{}, ErrNotFound
	}

	conn, err := r.pool.Get(ctx)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1`
	var user types.User
	err = conn.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	conn, err := r.pool.Get(ctx)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1`
	var user types.User
	err = conn.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

// Create inserts user. A concurrent insert of the same email surfaces as ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	conn, err := r.pool.Get(ctx)
	if err != nil {
		return types.User{}, err
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := conn.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}
