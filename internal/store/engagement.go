package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feastro/apiserver/types"
)

// EngagementRepository handles likes, saves and the engagement log.
type EngagementRepository struct {
	db *sql.DB
}

func NewEngagementRepository(db *sql.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

// reaction describes one of the per-user toggle tables and the recipe
// counter it keeps in step.
type reaction struct {
	table   string
	counter string
}

var (
	likeReaction = reaction{table: "likes", counter: "likes_count"}
	saveReaction = reaction{table: "saves", counter: "saves_count"}
)

// AddLike records that userID likes recipeID. A second like returns ErrConflict.
func (r *EngagementRepository) AddLike(ctx context.Context, userID, recipeID int) error {
	return r.add(ctx, likeReaction, userID, recipeID)
}

// RemoveLike deletes a like. A missing like returns ErrNotFound.
func (r *EngagementRepository) RemoveLike(ctx context.Context, userID, recipeID int) error {
	return r.remove(ctx, likeReaction, userID, recipeID)
}

func (r *EngagementRepository) AddSave(ctx context.Context, userID, recipeID int) error {
	return r.add(ctx, saveReaction, userID, recipeID)
}

func (r *EngagementRepository) RemoveSave(ctx context.Context, userID, recipeID int) error {
	return r.remove(ctx, saveReaction, userID, recipeID)
}

func (r *EngagementRepository) add(ctx context.Context, re reaction, userID, recipeID int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		insert := fmt.Sprintf(`INSERT INTO %s (user_id, recipe_id, created_at) VALUES ($1, $2, $3)`, re.table)
		if _, err := tx.ExecContext(ctx, insert, userID, recipeID, time.Now()); err != nil {
			return translateError(err)
		}
		update := fmt.Sprintf(`UPDATE recipes SET %[1]s = %[1]s + 1 WHERE id = $1`, re.counter)
		result, err := tx.ExecContext(ctx, update, recipeID)
		if err != nil {
			return err
		}
		return expectAffected(result)
	})
}

func (r *EngagementRepository) remove(ctx context.Context, re reaction, userID, recipeID int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		del := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND recipe_id = $2`, re.table)
		result, err := tx.ExecContext(ctx, del, userID, recipeID)
		if err != nil {
			return err
		}
		if err := expectAffected(result); err != nil {
			return err
		}
		update := fmt.Sprintf(`UPDATE recipes SET %[1]s = GREATEST(%[1]s - 1, 0) WHERE id = $1`, re.counter)
		_, err = tx.ExecContext(ctx, update, recipeID)
		return err
	})
}

// ListSaved returns the recipes saved by userID, most recently saved first.
func (r *EngagementRepository) ListSaved(ctx context.Context, userID, offset, limit int) ([]types.RecipeListItem, error) {
	const query = `
		SELECT r.id, r.title, v.thumbnail_url, r.cooking_time, r.difficulty,
			r.likes_count, r.saves_count, u.username, r.created_at
		FROM saves s
		JOIN recipes r ON r.id = s.recipe_id
		JOIN users u ON u.id = r.author_id
		LEFT JOIN videos v ON v.id = r.video_id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.RecipeListItem, 0, limit)
	for rows.Next() {
		var item types.RecipeListItem
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.ThumbnailURL,
			&item.CookingTime,
			&item.Difficulty,
			&item.LikesCount,
			&item.SavesCount,
			&item.AuthorUsername,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// AppendLog writes one engagement event to the log table. Events whose
// recipe or user no longer exists return ErrNotFound.
func (r *EngagementRepository) AppendLog(ctx context.Context, event types.EngagementEvent) error {
	const query = `
		INSERT INTO engagement_logs (user_id, recipe_id, action, created_at)
		VALUES ($1, $2, $3, $4)`
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.ExecContext(ctx, query, event.UserID, event.RecipeID, event.Action.String(), at)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *EngagementRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
