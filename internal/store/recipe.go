package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/feastro/apiserver/types"
)

const recipeColumns = `r.id, r.author_id, r.video_id, r.title, r.description, r.ingredients, r.instructions,
		r.cooking_time, r.servings, r.difficulty, r.dietary_preference, r.calories, r.protein,
		r.carbs, r.fat, r.likes_count, r.saves_count, r.views_count, r.tags, r.is_published,
		r.created_at, r.updated_at`

// RecipeRepository handles persistence for recipes.
type RecipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func scanRecipe(row rowScanner, extra ...any) (types.Recipe, error) {
	var recipe types.Recipe
	var ingredientsJSON, instructionsJSON, tagsJSON []byte
	dest := []any{
		&recipe.ID,
		&recipe.AuthorID,
		&recipe.VideoID,
		&recipe.Title,
		&recipe.Description,
		&ingredientsJSON,
		&instructionsJSON,
		&recipe.CookingTime,
		&recipe.Servings,
		&recipe.Difficulty,
		&recipe.DietaryPreference,
		&recipe.Calories,
		&recipe.Protein,
		&recipe.Carbs,
		&recipe.Fat,
		&recipe.LikesCount,
		&recipe.SavesCount,
		&recipe.ViewsCount,
		&tagsJSON,
		&recipe.IsPublished,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, err
	}

	if err := decodeRecipeBody(&recipe, ingredientsJSON, instructionsJSON, tagsJSON); err != nil {
		return types.Recipe{}, fmt.Errorf("recipe %d: %w", recipe.ID, err)
	}
	return recipe, nil
}

// decodeRecipeBody fills the JSONB columns of recipe. tags may be NULL.
func decodeRecipeBody(recipe *types.Recipe, ingredients, instructions, tags []byte) error {
	if err := json.Unmarshal(ingredients, &recipe.Ingredients); err != nil {
		return fmt.Errorf("decode ingredients: %w", err)
	}
	if err := json.Unmarshal(instructions, &recipe.Instructions); err != nil {
		return fmt.Errorf("decode instructions: %w", err)
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &recipe.Tags); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
	}
	return nil
}

func (r *RecipeRepository) Get(ctx context.Context, id int) (types.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes r WHERE r.id = $1`
	return scanRecipe(r.db.QueryRowContext(ctx, query, id))
}

// GetDetail loads a recipe joined with its author and video. viewerID, when
// non-zero, fills the is_liked / is_saved flags.
func (r *RecipeRepository) GetDetail(ctx context.Context, id, viewerID int) (types.RecipeDetail, error) {
	query := `
		SELECT ` + recipeColumns + `,
			u.username, u.avatar_url, v.video_url, v.thumbnail_url,
			EXISTS (SELECT 1 FROM likes l WHERE l.recipe_id = r.id AND l.user_id = $2),
			EXISTS (SELECT 1 FROM saves s WHERE s.recipe_id = r.id AND s.user_id = $2)
		FROM recipes r
		JOIN users u ON u.id = r.author_id
		LEFT JOIN videos v ON v.id = r.video_id
		WHERE r.id = $1`

	var detail types.RecipeDetail
	recipe, err := scanRecipe(
		r.db.QueryRowContext(ctx, query, id, viewerID),
		&detail.AuthorUsername,
		&detail.AuthorAvatar,
		&detail.VideoURL,
		&detail.ThumbnailURL,
		&detail.IsLiked,
		&detail.IsSaved,
	)
	if err != nil {
		return types.RecipeDetail{}, err
	}
	detail.Recipe = recipe
	return detail, nil
}

// List returns published recipes, newest first, narrowed by filter.
func (r *RecipeRepository) List(ctx context.Context, filter types.RecipeFilter, offset, limit int) ([]types.RecipeListItem, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	where, args := buildRecipeFilter(filter)
	args = append(args, offset, limit)
	query := fmt.Sprintf(`
		SELECT r.id, r.title, v.thumbnail_url, r.cooking_time, r.difficulty,
			r.likes_count, r.saves_count, u.username, r.created_at
		FROM recipes r
		JOIN users u ON u.id = r.author_id
		LEFT JOIN videos v ON v.id = r.video_id
		WHERE %s
		ORDER BY r.created_at DESC, r.id DESC
		OFFSET $%d LIMIT $%d`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
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

func buildRecipeFilter(filter types.RecipeFilter) (string, []any) {
	clauses := []string{"r.is_published = TRUE"}
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.AuthorID != nil {
		add("r.author_id = $%d", *filter.AuthorID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(r.title ILIKE $%d ESCAPE '\' OR r.description ILIKE $%d ESCAPE '\')`, n, n))
	}
	if filter.Difficulty != "" {
		add("r.difficulty = $%d", string(filter.Difficulty))
	}
	if filter.DietaryPreference != "" {
		add("r.dietary_preference = $%d", string(filter.DietaryPreference))
	}
	if filter.MaxCookingTime > 0 {
		add("r.cooking_time <= $%d", filter.MaxCookingTime)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		tagJSON, _ := json.Marshal([]string{tag})
		add("r.tags @> $%d::jsonb", string(tagJSON))
	}
	if ingredient := strings.TrimSpace(filter.Ingredient); ingredient != "" {
		add(`EXISTS (SELECT 1 FROM jsonb_array_elements(r.ingredients) i WHERE i->>'name' ILIKE ('%%' || $%d || '%%') ESCAPE '\')`, escapeLike(ingredient))
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern using ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// CountByAuthor returns the number of recipes authored by userID.
func (r *RecipeRepository) CountByAuthor(ctx context.Context, userID int) (int, error) {
	const query = `SELECT COUNT(1) FROM recipes WHERE author_id = $1`
	var n int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&n)
	return n, err
}

func (r *RecipeRepository) Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	recipe.CreatedAt = time.Now()

	ingredientsJSON, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return types.Recipe{}, err
	}
	instructionsJSON, err := json.Marshal(recipe.Instructions)
	if err != nil {
		return types.Recipe{}, err
	}
	tagsJSON, err := json.Marshal(recipe.Tags)
	if err != nil {
		return types.Recipe{}, err
	}

	const query = `
		INSERT INTO recipes (
			author_id, video_id, title, description, ingredients, instructions,
			cooking_time, servings, difficulty, dietary_preference,
			calories, protein, carbs, fat, tags, is_published, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		recipe.AuthorID,
		recipe.VideoID,
		recipe.Title,
		recipe.Description,
		ingredientsJSON,
		instructionsJSON,
		recipe.CookingTime,
		recipe.Servings,
		recipe.Difficulty,
		recipe.DietaryPreference,
		recipe.Calories,
		recipe.Protein,
		recipe.Carbs,
		recipe.Fat,
		tagsJSON,
		recipe.IsPublished,
		recipe.CreatedAt,
	).Scan(&recipe.ID); err != nil {
		return types.Recipe{}, translateError(err)
	}
	return recipe, nil
}

func (r *RecipeRepository) Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	now := time.Now()
	recipe.UpdatedAt = &now

	ingredientsJSON, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return types.Recipe{}, err
	}
	instructionsJSON, err := json.Marshal(recipe.Instructions)
	if err != nil {
		return types.Recipe{}, err
	}
	tagsJSON, err := json.Marshal(recipe.Tags)
	if err != nil {
		return types.Recipe{}, err
	}

	const query = `
		UPDATE recipes
		SET title = $1,
			description = $2,
			ingredients = $3,
			instructions = $4,
			cooking_time = $5,
			servings = $6,
			difficulty = $7,
			dietary_preference = $8,
			tags = $9,
			is_published = $10,
			video_id = $11,
			updated_at = $12
		WHERE id = $13`
	result, err := r.db.ExecContext(
		ctx,
		query,
		recipe.Title,
		recipe.Description,
		ingredientsJSON,
		instructionsJSON,
		recipe.CookingTime,
		recipe.Servings,
		recipe.Difficulty,
		recipe.DietaryPreference,
		tagsJSON,
		recipe.IsPublished,
		recipe.VideoID,
		recipe.UpdatedAt,
		recipe.ID,
	)
	if err != nil {
		return types.Recipe{}, translateError(err)
	}
	if err := expectAffected(result); err != nil {
		return types.Recipe{}, err
	}
	return recipe, nil
}

func (r *RecipeRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM recipes WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// IncrementViews bumps the view counter of a recipe.
func (r *RecipeRepository) IncrementViews(ctx context.Context, id int) error {
	const query = `UPDATE recipes SET views_count = views_count + 1 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
