package services

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/feastro/apiserver/internal/mq"
	"github.com/feastro/apiserver/internal/store"
	"github.com/feastro/apiserver/types"
)

type memUsers struct {
	byID map[int]types.User
}

func newMemUsers(users ...types.User) *memUsers {
	m := &memUsers{byID: map[int]types.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id int) (types.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) UpdateProfile(_ context.Context, user types.User) (types.User, error) {
	if _, ok := m.byID[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	m.byID[user.ID] = user
	return user, nil
}

type edge struct{ from, to int }

type memFollowers struct {
	edges map[edge]bool
}

func newMemFollowers() *memFollowers {
	return &memFollowers{edges: map[edge]bool{}}
}

func (m *memFollowers) Get(_ context.Context, followerID, followingID int) (types.Follower, error) {
	if !m.edges[edge{followerID, followingID}] {
		return types.Follower{}, store.ErrNotFound
	}
	return types.Follower{FollowerID: followerID, FollowingID: followingID}, nil
}

func (m *memFollowers) Create(_ context.Context, followerID, followingID int) (types.Follower, error) {
	e := edge{followerID, followingID}
	if m.edges[e] {
		return types.Follower{}, store.ErrConflict
	}
	m.edges[e] = true
	return types.Follower{FollowerID: followerID, FollowingID: followingID}, nil
}

func (m *memFollowers) Delete(_ context.Context, followerID, followingID int) error {
	e := edge{followerID, followingID}
	if !m.edges[e] {
		return store.ErrNotFound
	}
	delete(m.edges, e)
	return nil
}

func (m *memFollowers) CountFollowers(_ context.Context, userID int) (int, error) {
	n := 0
	for e := range m.edges {
		if e.to == userID {
			n++
		}
	}
	return n, nil
}

func (m *memFollowers) CountFollowing(_ context.Context, userID int) (int, error) {
	n := 0
	for e := range m.edges {
		if e.from == userID {
			n++
		}
	}
	return n, nil
}

func (m *memFollowers) ListFollowers(_ context.Context, userID, _, _ int) ([]types.UserPublic, error) {
	var out []types.UserPublic
	for e := range m.edges {
		if e.to == userID {
			out = append(out, types.UserPublic{ID: e.from})
		}
	}
	return out, nil
}

func (m *memFollowers) ListFollowing(_ context.Context, userID, _, _ int) ([]types.UserPublic, error) {
	var out []types.UserPublic
	for e := range m.edges {
		if e.from == userID {
			out = append(out, types.UserPublic{ID: e.to})
		}
	}
	return out, nil
}

type memRecipes struct {
	byID   map[int]types.Recipe
	nextID int
	views  map[int]int
	limits []int
}

func newMemRecipes() *memRecipes {
	return &memRecipes{byID: map[int]types.Recipe{}, nextID: 1, views: map[int]int{}}
}

func (m *memRecipes) Get(_ context.Context, id int) (types.Recipe, error) {
	r, ok := m.byID[id]
	if !ok {
		return types.Recipe{}, store.ErrNotFound
	}
	return r, nil
}

func (m *memRecipes) GetDetail(ctx context.Context, id, _ int) (types.RecipeDetail, error) {
	r, err := m.Get(ctx, id)
	if err != nil {
		return types.RecipeDetail{}, err
	}
	return types.RecipeDetail{Recipe: r}, nil
}

func (m *memRecipes) List(_ context.Context, _ types.RecipeFilter, _, limit int) ([]types.RecipeListItem, error) {
	m.limits = append(m.limits, limit)
	return []types.RecipeListItem{}, nil
}

func (m *memRecipes) Create(_ context.Context, recipe types.Recipe) (types.Recipe, error) {
	recipe.ID = m.nextID
	m.nextID++
	m.byID[recipe.ID] = recipe
	return recipe, nil
}

func (m *memRecipes) Update(_ context.Context, recipe types.Recipe) (types.Recipe, error) {
	if _, ok := m.byID[recipe.ID]; !ok {
		return types.Recipe{}, store.ErrNotFound
	}
	m.byID[recipe.ID] = recipe
	return recipe, nil
}

func (m *memRecipes) Delete(_ context.Context, id int) error {
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memRecipes) IncrementViews(_ context.Context, id int) error {
	m.views[id]++
	return nil
}

func (m *memRecipes) CountByAuthor(_ context.Context, userID int) (int, error) {
	n := 0
	for _, r := range m.byID {
		if r.AuthorID == userID {
			n++
		}
	}
	return n, nil
}

type memReactions struct {
	likes map[edge]bool
	saves map[edge]bool
}

func newMemReactions() *memReactions {
	return &memReactions{likes: map[edge]bool{}, saves: map[edge]bool{}}
}

func toggleOn(set map[edge]bool, userID, recipeID int) error {
	e := edge{userID, recipeID}
	if set[e] {
		return store.ErrConflict
	}
	set[e] = true
	return nil
}

func toggleOff(set map[edge]bool, userID, recipeID int) error {
	e := edge{userID, recipeID}
	if !set[e] {
		return store.ErrNotFound
	}
	delete(set, e)
	return nil
}

func (m *memReactions) AddLike(_ context.Context, userID, recipeID int) error {
	return toggleOn(m.likes, userID, recipeID)
}

func (m *memReactions) RemoveLike(_ context.Context, userID, recipeID int) error {
	return toggleOff(m.likes, userID, recipeID)
}

func (m *memReactions) AddSave(_ context.Context, userID, recipeID int) error {
	return toggleOn(m.saves, userID, recipeID)
}

func (m *memReactions) RemoveSave(_ context.Context, userID, recipeID int) error {
	return toggleOff(m.saves, userID, recipeID)
}

func (m *memReactions) ListSaved(_ context.Context, userID, _, _ int) ([]types.RecipeListItem, error) {
	var out []types.RecipeListItem
	for e := range m.saves {
		if e.from == userID {
			out = append(out, types.RecipeListItem{ID: e.to})
		}
	}
	return out, nil
}

type memVideos struct {
	byID   map[int]types.Video
	nextID int
	err    error
}

func newMemVideos(videos ...types.Video) *memVideos {
	m := &memVideos{byID: map[int]types.Video{}, nextID: 100}
	for _, v := range videos {
		m.byID[v.ID] = v
	}
	return m
}

func (m *memVideos) Get(_ context.Context, id int) (types.Video, error) {
	v, ok := m.byID[id]
	if !ok {
		return types.Video{}, store.ErrNotFound
	}
	return v, nil
}

func (m *memVideos) Create(_ context.Context, video types.Video) (types.Video, error) {
	if m.err != nil {
		return types.Video{}, m.err
	}
	video.ID = m.nextID
	m.nextID++
	m.byID[video.ID] = video
	return video, nil
}

type memObjects struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.objects[key] = buf.Bytes()
	m.contentTypes[key] = contentType
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjects) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type capturePublisher struct {
	mu     sync.Mutex
	events []types.EngagementEvent
}

func (c *capturePublisher) PublishEngagement(_ context.Context, event types.EngagementEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) actions() []types.EngagementAction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.EngagementAction, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Action)
	}
	return out
}

type memBroker struct {
	published []mq.Message
	channels  []string
	err       error
}

func (b *memBroker) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.channels = append(b.channels, channel)
	b.published = append(b.published, mq.Message{Data: data, Attributes: attrs})
	return "msg-1", nil
}

func (b *memBroker) Subscribe(ctx context.Context, _ string, handler mq.Handler) error {
	for _, msg := range b.published {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

type memLog struct {
	events []types.EngagementEvent
	err    error
}

func (l *memLog) AppendLog(_ context.Context, event types.EngagementEvent) error {
	if l.err != nil {
		return l.err
	}
	l.events = append(l.events, event)
	return nil
}
