package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/feastro/apiserver/internal/auth"
	"github.com/feastro/apiserver/internal/store"
	"github.com/feastro/apiserver/types"
)

const (
	DefaultPageSize     = 10
	DefaultFeedSize     = 20
	MaxPageSize         = 100
	minRecipeTitleLen   = 3
	maxRecipeTitleLen   = 255
	defaultServingCount = 1
)

// RecipeRepository defines persistence operations for recipes.
type RecipeRepository interface {
	Get(ctx context.Context, id int) (types.Recipe, error)
	GetDetail(ctx context.Context, id, viewerID int) (types.RecipeDetail, error)
	List(ctx context.Context, filter types.RecipeFilter, offset, limit int) ([]types.RecipeListItem, error)
	Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	Update(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	Delete(ctx context.Context, id int) error
	IncrementViews(ctx context.Context, id int) error
}

// ReactionRepository defines persistence for likes and saves.
type ReactionRepository interface {
	AddLike(ctx context.Context, userID, recipeID int) error
	RemoveLike(ctx context.Context, userID, recipeID int) error
	AddSave(ctx context.Context, userID, recipeID int) error
	RemoveSave(ctx context.Context, userID, recipeID int) error
	ListSaved(ctx context.Context, userID, offset, limit int) ([]types.RecipeListItem, error)
}

// VideoLookup loads video metadata.
type VideoLookup interface {
	Get(ctx context.Context, id int) (types.Video, error)
}

// RecipePatch carries a partial recipe update. Nil fields are left untouched.
type RecipePatch struct {
	Title             *string
	Description       *string
	Ingredients       []types.Ingredient
	Instructions      []types.InstructionStep
	CookingTime       *int
	Servings          *int
	Difficulty        *types.Difficulty
	DietaryPreference *types.DietaryPreference
	Tags              []string
	IsPublished       *bool
	VideoID           *int
}

// RecipeService encapsulates recipe and engagement use-cases.
type RecipeService struct {
	recipes   RecipeRepository
	reactions ReactionRepository
	videos    VideoLookup
	events    EventPublisher
	logger    *slog.Logger
}

func NewRecipeService(recipes RecipeRepository, reactions ReactionRepository, videos VideoLookup, events EventPublisher, logger *slog.Logger) *RecipeService {
	if events == nil {
		events = NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipeService{
		recipes:   recipes,
		reactions: reactions,
		videos:    videos,
		events:    events,
		logger:    logger,
	}
}

// Create stores a new recipe authored by p.
func (s *RecipeService) Create(ctx context.Context, p auth.Principal, recipe types.Recipe) (types.Recipe, error) {
	recipe.AuthorID = p.ID
	recipe.Title = strings.TrimSpace(recipe.Title)
	if recipe.Servings == 0 {
		recipe.Servings = defaultServingCount
	}
	if recipe.Difficulty == "" {
		recipe.Difficulty = types.DifficultyMedium
	}
	if recipe.DietaryPreference == "" {
		recipe.DietaryPreference = types.DietNone
	}
	if recipe.Tags == nil {
		recipe.Tags = []string{}
	}
	recipe.IsPublished = true

	if err := validateRecipe(recipe); err != nil {
		return types.Recipe{}, err
	}
	if err := s.checkVideo(ctx, p, recipe.VideoID); err != nil {
		return types.Recipe{}, err
	}

	created, err := s.recipes.Create(ctx, recipe)
	if err != nil {
		return types.Recipe{}, err
	}
	s.logger.InfoContext(ctx, "recipe created", "recipe_id", created.ID, "author_id", p.ID)
	return created, nil
}

// Get returns the detail view of a recipe and counts the view. viewerID is 0
// for anonymous callers.
func (s *RecipeService) Get(ctx context.Context, id, viewerID int) (types.RecipeDetail, error) {
	detail, err := s.recipes.GetDetail(ctx, id, viewerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.RecipeDetail{}, ErrRecipeNotFound
		}
		return types.RecipeDetail{}, err
	}

	if err := s.recipes.IncrementViews(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "increment recipe views", "recipe_id", id, "error", err)
	} else {
		detail.ViewsCount++
	}
	s.publish(ctx, viewerID, id, types.ActionView)
	return detail, nil
}

// List returns published recipes, newest first.
func (s *RecipeService) List(ctx context.Context, filter types.RecipeFilter, offset, limit int) ([]types.RecipeListItem, error) {
	return s.recipes.List(ctx, filter, offset, clampLimit(limit, DefaultPageSize))
}

// Discover returns the discovery feed.
func (s *RecipeService) Discover(ctx context.Context, offset, limit int) ([]types.RecipeListItem, error) {
	return s.recipes.List(ctx, types.RecipeFilter{}, offset, clampLimit(limit, DefaultFeedSize))
}

// Update applies patch to a recipe owned by p (or any recipe when p is an
// admin).
func (s *RecipeService) Update(ctx context.Context, p auth.Principal, id int, patch RecipePatch) (types.Recipe, error) {
	recipe, err := s.load(ctx, id)
	if err != nil {
		return types.Recipe{}, err
	}
	if err := auth.Authorize(p, recipe.AuthorID); err != nil {
		return types.Recipe{}, err
	}

	if patch.Title != nil {
		recipe.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		recipe.Description = patch.Description
	}
	if patch.Ingredients != nil {
		recipe.Ingredients = patch.Ingredients
	}
	if patch.Instructions != nil {
		recipe.Instructions = patch.Instructions
	}
	if patch.CookingTime != nil {
		recipe.CookingTime = *patch.CookingTime
	}
	if patch.Servings != nil {
		recipe.Servings = *patch.Servings
	}
	if patch.Difficulty != nil {
		recipe.Difficulty = *patch.Difficulty
	}
	if patch.DietaryPreference != nil {
		recipe.DietaryPreference = *patch.DietaryPreference
	}
	if patch.Tags != nil {
		recipe.Tags = patch.Tags
	}
	if patch.IsPublished != nil {
		recipe.IsPublished = *patch.IsPublished
	}
	if patch.VideoID != nil && (recipe.VideoID == nil || *recipe.VideoID != *patch.VideoID) {
		if err := s.checkVideo(ctx, p, patch.VideoID); err != nil {
			return types.Recipe{}, err
		}
		recipe.VideoID = patch.VideoID
	}

	if err := validateRecipe(recipe); err != nil {
		return types.Recipe{}, err
	}

	updated, err := s.recipes.Update(ctx, recipe)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Recipe{}, ErrRecipeNotFound
		}
		return types.Recipe{}, err
	}
	return updated, nil
}

// Delete removes a recipe owned by p (or any recipe when p is an admin).
func (s *RecipeService) Delete(ctx context.Context, p auth.Principal, id int) error {
	recipe, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.Authorize(p, recipe.AuthorID); err != nil {
		return err
	}
	if err := s.recipes.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRecipeNotFound
		}
		return err
	}
	s.logger.InfoContext(ctx, "recipe deleted", "recipe_id", id, "by", p.ID)
	return nil
}

func (s *RecipeService) Like(ctx context.Context, userID, recipeID int) error {
	return s.react(ctx, userID, recipeID, types.ActionLike, s.reactions.AddLike, ErrAlreadyLiked)
}

func (s *RecipeService) Unlike(ctx context.Context, userID, recipeID int) error {
	return s.react(ctx, userID, recipeID, types.ActionUnlike, s.reactions.RemoveLike, ErrNotLiked)
}

func (s *RecipeService) Save(ctx context.Context, userID, recipeID int) error {
	return s.react(ctx, userID, recipeID, types.ActionSave, s.reactions.AddSave, ErrAlreadySaved)
}

func (s *RecipeService) Unsave(ctx context.Context, userID, recipeID int) error {
	return s.react(ctx, userID, recipeID, types.ActionUnsave, s.reactions.RemoveSave, ErrNotSaved)
}

// Saved lists the recipes saved by userID.
func (s *RecipeService) Saved(ctx context.Context, userID, offset, limit int) ([]types.RecipeListItem, error) {
	return s.reactions.ListSaved(ctx, userID, offset, clampLimit(limit, DefaultFeedSize))
}

// react runs one like/save toggle. A unique violation or a missing row from
// the store is reported as stateErr.
func (s *RecipeService) react(
	ctx context.Context,
	userID, recipeID int,
	action types.EngagementAction,
	apply func(ctx context.Context, userID, recipeID int) error,
	stateErr error,
) error {
	if _, err := s.load(ctx, recipeID); err != nil {
		return err
	}
	if err := apply(ctx, userID, recipeID); err != nil {
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			return stateErr
		}
		return err
	}
	s.publish(ctx, userID, recipeID, action)
	return nil
}

func (s *RecipeService) load(ctx context.Context, id int) (types.Recipe, error) {
	recipe, err := s.recipes.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Recipe{}, ErrRecipeNotFound
		}
		return types.Recipe{}, err
	}
	return recipe, nil
}

func (s *RecipeService) checkVideo(ctx context.Context, p auth.Principal, videoID *int) error {
	if videoID == nil {
		return nil
	}
	video, err := s.videos.Get(ctx, *videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrVideoNotFound
		}
		return err
	}
	return auth.Authorize(p, video.UploaderID)
}

// publish emits an engagement event. Failures are logged and never fail the
// request.
func (s *RecipeService) publish(ctx context.Context, userID, recipeID int, action types.EngagementAction) {
	event := types.EngagementEvent{
		RecipeID:   recipeID,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
	if userID != 0 {
		event.UserID = &userID
	}
	if err := s.events.PublishEngagement(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "publish engagement event", "action", action.String(), "recipe_id", recipeID, "error", err)
	}
}

func validateRecipe(r types.Recipe) error {
	if n := len([]rune(r.Title)); n < minRecipeTitleLen || n > maxRecipeTitleLen {
		return invalid(fmt.Sprintf("title must be between %d and %d characters", minRecipeTitleLen, maxRecipeTitleLen))
	}
	if len(r.Ingredients) == 0 {
		return invalid("at least one ingredient is required")
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" || strings.TrimSpace(ing.Quantity) == "" {
			return invalid("ingredients need a name and a quantity")
		}
	}
	if len(r.Instructions) == 0 {
		return invalid("at least one instruction is required")
	}
	for i, step := range r.Instructions {
		if step.StepNumber != i+1 {
			return invalid("instruction steps must be numbered sequentially from 1")
		}
		if strings.TrimSpace(step.Instruction) == "" {
			return invalid(fmt.Sprintf("instruction %d is empty", step.StepNumber))
		}
	}
	if r.CookingTime <= 0 {
		return invalid("cooking_time must be positive")
	}
	if r.Servings <= 0 {
		return invalid("servings must be positive")
	}
	switch r.Difficulty {
	case types.DifficultyEasy, types.DifficultyMedium, types.DifficultyHard:
	default:
		return invalid("unknown difficulty")
	}
	switch r.DietaryPreference {
	case types.DietNone, types.DietVegetarian, types.DietVegan, types.DietGlutenFree, types.DietKeto, types.DietPaleo:
	default:
		return invalid("unknown dietary_preference")
	}
	return nil
}

func clampLimit(limit, def int) int {
	if limit < 1 {
		return def
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
