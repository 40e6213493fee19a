package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/feastro/apiserver/internal/auth"
	"github.com/feastro/apiserver/internal/services"
	"github.com/feastro/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// RecipeService is the recipe service used by RecipeHandler.
type RecipeService interface {
	Create(ctx context.Context, p auth.Principal, recipe types.Recipe) (types.Recipe, error)
	Get(ctx context.Context, id, viewerID int) (types.RecipeDetail, error)
	List(ctx context.Context, filter types.RecipeFilter, offset, limit int) ([]types.RecipeListItem, error)
	Discover(ctx context.Context, offset, limit int) ([]types.RecipeListItem, error)
	Update(ctx context.Context, p auth.Principal, id int, patch services.RecipePatch) (types.Recipe, error)
	Delete(ctx context.Context, p auth.Principal, id int) error
	Like(ctx context.Context, userID, recipeID int) error
	Unlike(ctx context.Context, userID, recipeID int) error
	Save(ctx context.Context, userID, recipeID int) error
	Unsave(ctx context.Context, userID, recipeID int) error
}

type RecipeHandler struct {
	service RecipeService
	logger  *slog.Logger
}

func NewRecipeHandler(service RecipeService, logger *slog.Logger) *RecipeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipeHandler{service: service, logger: logger}
}

// RecipeRouter registers recipe routes on the given router.
func RecipeRouter(r chi.Router, handler *RecipeHandler, authn *Authenticator) {
	r.Get("/", handler.ListRecipes)
	r.Get("/feed/discover", handler.Discover)
	r.With(authn.OptionalAuth).Get("/{recipeID}", handler.GetRecipe)

	r.Group(func(r chi.Router) {
		r.Use(authn.RequireAuth)
		r.Post("/", handler.CreateRecipe)
		r.Put("/{recipeID}", handler.UpdateRecipe)
		r.Delete("/{recipeID}", handler.DeleteRecipe)
		r.Post("/{recipeID}/like", handler.Like)
		r.Delete("/{recipeID}/like", handler.Unlike)
		r.Post("/{recipeID}/save", handler.Save)
		r.Delete("/{recipeID}/save", handler.Unsave)
	})
}

// SearchRouter registers search routes on the given router.
func SearchRouter(r chi.Router, handler *RecipeHandler) {
	r.Get("/recipes", handler.Search)
}

type CreateRecipeRequest struct {
	Title             string                  `json:"title" validate:"required,min=3,max=255"`
	Description       *string                 `json:"description"`
	Ingredients       []types.Ingredient      `json:"ingredients" validate:"required,min=1,dive"`
	Instructions      []types.InstructionStep `json:"instructions" validate:"required,min=1,dive"`
	CookingTime       int                     `json:"cooking_time" validate:"gt=0"`
	Servings          int                     `json:"servings" validate:"omitempty,gt=0"`
	Difficulty        types.Difficulty        `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	DietaryPreference types.DietaryPreference `json:"dietary_preference" validate:"omitempty,oneof=none vegetarian vegan gluten_free keto paleo"`
	Calories          *int                    `json:"calories" validate:"omitnil,gte=0"`
	Protein           *float64                `json:"protein" validate:"omitnil,gte=0"`
	Carbs             *float64                `json:"carbs" validate:"omitnil,gte=0"`
	Fat               *float64                `json:"fat" validate:"omitnil,gte=0"`
	Tags              []string                `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	VideoID           *int                    `json:"video_id" validate:"omitnil,gt=0"`
}

type UpdateRecipeRequest struct {
	Title             *string                  `json:"title" validate:"omitnil,min=3,max=255"`
	Description       *string                  `json:"description"`
	Ingredients       []types.Ingredient       `json:"ingredients" validate:"omitempty,dive"`
	Instructions      []types.InstructionStep  `json:"instructions" validate:"omitempty,dive"`
	CookingTime       *int                     `json:"cooking_time" validate:"omitnil,gt=0"`
	Servings          *int                     `json:"servings" validate:"omitnil,gt=0"`
	Difficulty        *types.Difficulty        `json:"difficulty" validate:"omitnil,oneof=easy medium hard"`
	DietaryPreference *types.DietaryPreference `json:"dietary_preference" validate:"omitnil,oneof=none vegetarian vegan gluten_free keto paleo"`
	Tags              []string                 `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	IsPublished       *bool                    `json:"is_published"`
	VideoID           *int                     `json:"video_id" validate:"omitnil,gt=0"`
}

func (h *RecipeHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, r, h.logger, auth.ErrUnauthorized, "")
		return
	}

	var req CreateRecipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recipe, err := h.service.Create(r.Context(), principal, types.Recipe{
		VideoID:           req.VideoID,
		Title:             req.Title,
		Description:       req.Description,
		Ingredients:       req.Ingredients,
		Instructions:      req.Instructions,
		CookingTime:       req.CookingTime,
		Servings:          req.Servings,
		Difficulty:        req.Difficulty,
		DietaryPreference: req.DietaryPreference,
		Calories:          req.Calories,
		Protein:           req.Protein,
		Carbs:             req.Carbs,
		Fat:               req.Fat,
		Tags:              req.Tags,
	})
	if err != nil {
		respondError(w, r, h.logger, err, "failed to create recipe")
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

// ListRecipes returns published recipes, optionally narrowed to author_id.
func (h *RecipeHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r, services.DefaultPageSize, services.MaxPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var filter types.RecipeFilter
	authorID, err := parseOptionalInt(r.URL.Query().Get("author_id"))
	if err != nil || authorID < 0 {
		writeError(w, http.StatusBadRequest, "invalid author_id")
		return
	}
	if authorID > 0 {
		filter.AuthorID = &authorID
	}

	h.list(w, r, filter, skip, limit)
}

func (h *RecipeHandler) Discover(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r, services.DefaultFeedSize, services.MaxPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.service.Discover(r.Context(), skip, limit)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to load feed")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Search lists published recipes matching the query filters.
func (h *RecipeHandler) Search(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePagination(r, services.DefaultPageSize, services.MaxPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	filter := types.RecipeFilter{
		Query:             strings.TrimSpace(q.Get("q")),
		Difficulty:        types.Difficulty(strings.TrimSpace(q.Get("difficulty"))),
		DietaryPreference: types.DietaryPreference(strings.TrimSpace(q.Get("dietary_preference"))),
		Tag:               strings.TrimSpace(q.Get("tag")),
		Ingredient:        strings.TrimSpace(q.Get("ingredient")),
	}
	switch filter.Difficulty {
	case "", types.DifficultyEasy, types.DifficultyMedium, types.DifficultyHard:
	default:
		writeError(w, http.StatusBadRequest, "invalid difficulty")
		return
	}
	if filter.MaxCookingTime, err = parseOptionalInt(q.Get("max_cooking_time")); err != nil || filter.MaxCookingTime < 0 {
		writeError(w, http.StatusBadRequest, "invalid max_cooking_time")
		return
	}

	h.list(w, r, filter, skip, limit)
}

func (h *RecipeHandler) list(w http.ResponseWriter, r *http.Request, filter types.RecipeFilter, skip, limit int) {
	items, err := h.service.List(r.Context(), filter, skip, limit)
	if err != nil {
		respondError(w, r, h.logger, err, "failed to list recipes")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetRecipe returns the recipe detail. Authenticated callers also get their
// like and save state.
func (h *RecipeHandler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.service.Get(r.Context(), id, viewerID(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err, "failed to load recipe")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *RecipeHandler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, r, h.logger, auth.ErrUnauthorized, "")
		return
	}
	id, err := parseIDParam(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateRecipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recipe, err := h.service.Update(r.Context(), principal, id, services.RecipePatch{
		Title:             req.Title,
		Description:       req.Description,
		Ingredients:       req.Ingredients,
		Instructions:      req.Instructions,
		CookingTime:       req.CookingTime,
		Servings:          req.Servings,
		Difficulty:        req.Difficulty,
		DietaryPreference: req.DietaryPreference,
		Tags:              req.Tags,
		IsPublished:       req.IsPublished,
		VideoID:           req.VideoID,
	})
	if err != nil {
		respondError(w, r, h.logger, err, "failed to update recipe")
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, r, h.logger, auth.ErrUnauthorized, "")
		return
	}
	id, err := parseIDParam(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		respondError(w, r, h.logger, err, "failed to delete recipe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecipeHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.service.Like, "Recipe liked successfully")
}

func (h *RecipeHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.service.Unlike, "Recipe unliked successfully")
}

func (h *RecipeHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.service.Save, "Recipe saved successfully")
}

func (h *RecipeHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.service.Unsave, "Recipe unsaved successfully")
}

func (h *RecipeHandler) react(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, userID, recipeID int) error,
	message string,
) {
	id, err := parseIDParam(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := apply(r.Context(), viewerID(r.Context()), id); err != nil {
		respondError(w, r, h.logger, err, "failed to update recipe engagement")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}
