package types

import "time"

// Difficulty is the preparation difficulty of a recipe.
type Difficulty string

// Supported difficulty levels.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DietaryPreference tags a recipe with the diet it satisfies.
type DietaryPreference string

// Supported dietary preferences.
const (
	DietNone       DietaryPreference = "none"
	DietVegetarian DietaryPreference = "vegetarian"
	DietVegan      DietaryPreference = "vegan"
	DietGlutenFree DietaryPreference = "gluten_free"
	DietKeto       DietaryPreference = "keto"
	DietPaleo      DietaryPreference = "paleo"
)

// Recipe represents a cooking recipe published on the platform.
// Ingredients and instructions are stored as embedded structured documents.
type Recipe struct {
	// ID is the unique identifier of the recipe.
	ID int `json:"id" db:"id"`

	// AuthorID identifies the user who owns the recipe.
	AuthorID int `json:"author_id" db:"author_id"`

	// VideoID references the short video attached to the recipe, if any.
	VideoID *int `json:"video_id" db:"video_id"`

	// Title is the human-readable name of the recipe.
	Title string `json:"title" db:"title"`

	// Description is an optional free-form introduction.
	Description *string `json:"description" db:"description"`

	// Ingredients is the list of structured ingredients.
	Ingredients []Ingredient `json:"ingredients" db:"ingredients"`

	// Instructions is the ordered list of preparation steps.
	Instructions []InstructionStep `json:"instructions" db:"instructions"`

	// CookingTime is the total preparation time, expressed in minutes.
	CookingTime int `json:"cooking_time" db:"cooking_time"`

	// Servings is the number of portions the recipe yields.
	Servings int `json:"servings" db:"servings"`

	Difficulty        Difficulty        `json:"difficulty" db:"difficulty"`
	DietaryPreference DietaryPreference `json:"dietary_preference" db:"dietary_preference"`

	// Nutritional information, per serving. All optional.
	Calories *int     `json:"calories" db:"calories"`
	Protein  *float64 `json:"protein" db:"protein"`
	Carbs    *float64 `json:"carbs" db:"carbs"`
	Fat      *float64 `json:"fat" db:"fat"`

	// Denormalized engagement counters.
	LikesCount int `json:"likes_count" db:"likes_count"`
	SavesCount int `json:"saves_count" db:"saves_count"`
	ViewsCount int `json:"views_count" db:"views_count"`

	// Tags are free-form labels used for search.
	Tags []string `json:"tags" db:"tags"`

	// IsPublished hides drafts from listings when false.
	IsPublished bool `json:"is_published" db:"is_published"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// Ingredient is a single entry of a recipe's ingredient list.
type Ingredient struct {
	Name     string  `json:"name" validate:"required"`
	Quantity string  `json:"quantity" validate:"required"`
	Unit     *string `json:"unit,omitempty"`
}

// InstructionStep is one numbered preparation step.
type InstructionStep struct {
	StepNumber  int    `json:"step_number" validate:"gte=1"`
	Instruction string `json:"instruction" validate:"required"`

	// Duration is the optional step duration in minutes.
	Duration *int `json:"duration,omitempty"`
}

// RecipeDetail is the full view of a recipe returned by the detail endpoint.
type RecipeDetail struct {
	Recipe

	AuthorUsername string  `json:"author_username"`
	AuthorAvatar   *string `json:"author_avatar"`
	VideoURL       *string `json:"video_url"`
	ThumbnailURL   *string `json:"thumbnail_url"`
	IsLiked        bool    `json:"is_liked"`
	IsSaved        bool    `json:"is_saved"`
}

// RecipeListItem is the compact view used by listings and feeds.
type RecipeListItem struct {
	ID             int        `json:"id"`
	Title          string     `json:"title"`
	ThumbnailURL   *string    `json:"thumbnail_url"`
	CookingTime    int        `json:"cooking_time"`
	Difficulty     Difficulty `json:"difficulty"`
	LikesCount     int        `json:"likes_count"`
	SavesCount     int        `json:"saves_count"`
	AuthorUsername string     `json:"author_username"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RecipeFilter narrows recipe listings and searches.
type RecipeFilter struct {
	AuthorID          *int
	Query             string
	Difficulty        Difficulty
	DietaryPreference DietaryPreference
	MaxCookingTime    int
	Tag               string
	Ingredient        string
}
