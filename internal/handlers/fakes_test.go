package handlers

import (
	"context"
	"io"
	"log/slog"

	"github.com/feastro/apiserver/internal/auth"
	"github.com/feastro/apiserver/internal/services"
	"github.com/feastro/apiserver/types"
	"github.com/go-chi/chi/v5"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGuard accepts the tokens in its map.
type fakeGuard struct {
	tokens map[string]auth.Principal
}

func (g fakeGuard) ResolvePrincipal(_ context.Context, bearer string) (*auth.Principal, error) {
	if bearer == "" {
		return nil, nil
	}
	p, ok := g.tokens[bearer]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &p, nil
}

func (g fakeGuard) RequireActivePrincipal(ctx context.Context, bearer string) (auth.Principal, error) {
	p, err := g.ResolvePrincipal(ctx, bearer)
	if err != nil || p == nil || !p.IsActive {
		return auth.Principal{}, auth.ErrUnauthorized
	}
	return *p, nil
}

var (
	alice = auth.Principal{ID: 1, Email: "alice@example.com", Role: types.RoleUser, IsActive: true}
	admin = auth.Principal{ID: 9, Email: "root@example.com", Role: types.RoleAdmin, IsActive: true}
)

func testAuthenticator() *Authenticator {
	return NewAuthenticator(fakeGuard{tokens: map[string]auth.Principal{
		"alice-token": alice,
		"admin-token": admin,
		"idle-token":  {ID: 3, Role: types.RoleUser, IsActive: false},
	}}, discardLogger())
}

type fakeAuthService struct {
	pair     auth.TokenPair
	err      error
	email    string
	username string
}

func (f *fakeAuthService) Register(_ context.Context, email, username, _ string) (types.User, auth.TokenPair, error) {
	f.email, f.username = email, username
	return types.User{}, f.pair, f.err
}

func (f *fakeAuthService) Login(_ context.Context, email, _ string) (types.User, auth.TokenPair, error) {
	f.email = email
	return types.User{}, f.pair, f.err
}

func (f *fakeAuthService) Refresh(context.Context, string) (types.User, auth.TokenPair, error) {
	return types.User{}, f.pair, f.err
}

func (f *fakeAuthService) GoogleAuth(context.Context, string) (types.User, auth.TokenPair, error) {
	return types.User{}, auth.TokenPair{}, auth.ErrNotImplemented
}

type fakeUserLookup map[int]types.User

func (f fakeUserLookup) GetByID(_ context.Context, id int) (types.User, error) {
	u, ok := f[id]
	if !ok {
		return types.User{}, services.ErrUserNotFound
	}
	return u, nil
}

type fakeRecipeService struct {
	err       error
	principal auth.Principal
	created   types.Recipe
	filter    types.RecipeFilter
	skip      int
	limit     int
	viewer    int
	reactions []string
}

func (f *fakeRecipeService) Create(_ context.Context, p auth.Principal, recipe types.Recipe) (types.Recipe, error) {
	f.principal, f.created = p, recipe
	recipe.ID = 42
	recipe.AuthorID = p.ID
	return recipe, f.err
}

func (f *fakeRecipeService) Get(_ context.Context, id, viewerID int) (types.RecipeDetail, error) {
	f.viewer = viewerID
	if f.err != nil {
		return types.RecipeDetail{}, f.err
	}
	return types.RecipeDetail{Recipe: types.Recipe{ID: id, Title: "Shakshuka"}}, nil
}

func (f *fakeRecipeService) List(_ context.Context, filter types.RecipeFilter, offset, limit int) ([]types.RecipeListItem, error) {
	f.filter, f.skip, f.limit = filter, offset, limit
	return []types.RecipeListItem{{ID: 1, Title: "Shakshuka"}}, f.err
}

func (f *fakeRecipeService) Discover(_ context.Context, offset, limit int) ([]types.RecipeListItem, error) {
	f.skip, f.limit = offset, limit
	return []types.RecipeListItem{}, f.err
}

func (f *fakeRecipeService) Update(_ context.Context, p auth.Principal, id int, patch services.RecipePatch) (types.Recipe, error) {
	f.principal = p
	if f.err != nil {
		return types.Recipe{}, f.err
	}
	out := types.Recipe{ID: id}
	if patch.Title != nil {
		out.Title = *patch.Title
	}
	return out, nil
}

func (f *fakeRecipeService) Delete(_ context.Context, p auth.Principal, _ int) error {
	f.principal = p
	return f.err
}

func (f *fakeRecipeService) react(name string, userID int) error {
	f.viewer = userID
	f.reactions = append(f.reactions, name)
	return f.err
}

func (f *fakeRecipeService) Like(_ context.Context, userID, _ int) error {
	return f.react("like", userID)
}

func (f *fakeRecipeService) Unlike(_ context.Context, userID, _ int) error {
	return f.react("unlike", userID)
}

func (f *fakeRecipeService) Save(_ context.Context, userID, _ int) error {
	return f.react("save", userID)
}

func (f *fakeRecipeService) Unsave(_ context.Context, userID, _ int) error {
	return f.react("unsave", userID)
}

type fakeVideoService struct {
	err    error
	upload services.VideoUpload
	body   []byte
}

func (f *fakeVideoService) Get(_ context.Context, id int) (types.Video, error) {
	if f.err != nil {
		return types.Video{}, f.err
	}
	return types.Video{ID: id, Format: "mp4"}, nil
}

func (f *fakeVideoService) Upload(_ context.Context, uploaderID int, upload services.VideoUpload) (types.Video, error) {
	if f.err != nil {
		return types.Video{}, f.err
	}
	f.upload = upload
	body, err := io.ReadAll(upload.Body)
	if err != nil {
		return types.Video{}, err
	}
	f.body = body
	return types.Video{ID: 7, UploaderID: uploaderID, FileSize: upload.Size, Format: "mp4"}, nil
}

func newRouter(mount func(r chi.Router)) chi.Router {
	r := chi.NewRouter()
	mount(r)
	return r
}
