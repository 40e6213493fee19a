package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/feastro/apiserver/types"
)

const userColumns = `id, email, username, hashed_password, bio, avatar_url, role, is_active,
		is_verified, google_id, created_at, updated_at, last_login`

// UserRepository handles persistence for users. Lookups are exact matches;
// the unique constraints users_email_key and users_username_key back the
// service-level duplicate checks.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Bio, &u.AvatarURL, &u.Role,
		&u.IsActive, &u.IsVerified, &u.GoogleID, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, ErrNotFound
	}
	return u, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return r.getBy(ctx, "username", username)
}

// getBy is only called with fixed column names.
func (r *UserRepository) getBy(ctx context.Context, column string, value any) (types.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value))
}

// Create inserts user and fills in the generated id and created_at. Unique
// violations come back as ErrDuplicateEmail or ErrDuplicateUsername.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.Role == "" {
		user.Role = types.RoleUser
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, hashed_password, bio, avatar_url, role, is_active, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		user.Email, user.Username, user.PasswordHash, user.Bio, user.AvatarURL,
		user.Role, user.IsActive, user.IsVerified,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return types.User{}, translateError(err)
	}
	return user, nil
}

// UpdateProfile writes username, bio and avatar_url.
func (r *UserRepository) UpdateProfile(ctx context.Context, user types.User) (types.User, error) {
	var updated time.Time
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET username = $1, bio = $2, avatar_url = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`,
		user.Username, user.Bio, user.AvatarURL, user.ID,
	).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, ErrNotFound
	}
	if err != nil {
		return types.User{}, translateError(err)
	}
	user.UpdatedAt = &updated
	return user, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	return r.exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET hashed_password = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
}

// exec runs a single-row update and reports ErrNotFound when no row matched.
func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
