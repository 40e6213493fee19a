package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/feastro/apiserver/types"
)

// FollowerRepository handles persistence for the social graph.
type FollowerRepository struct {
	db *sql.DB
}

func NewFollowerRepository(db *sql.DB) *FollowerRepository {
	return &FollowerRepository{db: db}
}

func (r *FollowerRepository) Get(ctx context.Context, followerID, followingID int) (types.Follower, error) {
	const query = `
		SELECT id, follower_id, following_id, created_at
		FROM followers
		WHERE follower_id = $1 AND following_id = $2`
	var f types.Follower
	err := r.db.QueryRowContext(ctx, query, followerID, followingID).Scan(
		&f.ID,
		&f.FollowerID,
		&f.FollowingID,
		&f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Follower{}, ErrNotFound
		}
		return types.Follower{}, err
	}
	return f, nil
}

func (r *FollowerRepository) Create(ctx context.Context, followerID, followingID int) (types.Follower, error) {
	f := types.Follower{
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   time.Now(),
	}
	const query = `
		INSERT INTO followers (follower_id, following_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, followerID, followingID, f.CreatedAt).Scan(&f.ID); err != nil {
		return types.Follower{}, translateError(err)
	}
	return f, nil
}

func (r *FollowerRepository) Delete(ctx context.Context, followerID, followingID int) error {
	const query = `DELETE FROM followers WHERE follower_id = $1 AND following_id = $2`
	result, err := r.db.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// CountFollowers returns how many users follow userID.
func (r *FollowerRepository) CountFollowers(ctx context.Context, userID int) (int, error) {
	const query = `SELECT COUNT(1) FROM followers WHERE following_id = $1`
	var n int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&n)
	return n, err
}

// CountFollowing returns how many users userID follows.
func (r *FollowerRepository) CountFollowing(ctx context.Context, userID int) (int, error) {
	const query = `SELECT COUNT(1) FROM followers WHERE follower_id = $1`
	var n int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&n)
	return n, err
}

// ListFollowers returns the users following userID.
func (r *FollowerRepository) ListFollowers(ctx context.Context, userID, offset, limit int) ([]types.UserPublic, error) {
	const query = `
		SELECT u.id, u.username, u.avatar_url
		FROM users u
		JOIN followers f ON f.follower_id = u.id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC
		OFFSET $2 LIMIT $3`
	return r.listUsers(ctx, query, userID, offset, limit)
}

// ListFollowing returns the users userID follows.
func (r *FollowerRepository) ListFollowing(ctx context.Context, userID, offset, limit int) ([]types.UserPublic, error) {
	const query = `
		SELECT u.id, u.username, u.avatar_url
		FROM users u
		JOIN followers f ON f.following_id = u.id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC
		OFFSET $2 LIMIT $3`
	return r.listUsers(ctx, query, userID, offset, limit)
}

func (r *FollowerRepository) listUsers(ctx context.Context, query string, userID, offset, limit int) ([]types.UserPublic, error) {
	rows, err := r.db.QueryContext(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.UserPublic, 0, limit)
	for rows.Next() {
		var u types.UserPublic
		if err := rows.Scan(&u.ID, &u.Username, &u.AvatarURL); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
