package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feastro/apiserver/internal/auth"
	"github.com/feastro/apiserver/internal/store"
	"github.com/feastro/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	UpdateProfile(ctx context.Context, user types.User) (types.User, error)
}

// FollowerRepository defines persistence operations for the social graph.
type FollowerRepository interface {
	Get(ctx context.Context, followerID, followingID int) (types.Follower, error)
	Create(ctx context.Context, followerID, followingID int) (types.Follower, error)
	Delete(ctx context.Context, followerID, followingID int) error
	CountFollowers(ctx context.Context, userID int) (int, error)
	CountFollowing(ctx context.Context, userID int) (int, error)
	ListFollowers(ctx context.Context, userID, offset, limit int) ([]types.UserPublic, error)
	ListFollowing(ctx context.Context, userID, offset, limit int) ([]types.UserPublic, error)
}

// RecipeCounter counts recipes per author for profiles.
type RecipeCounter interface {
	CountByAuthor(ctx context.Context, userID int) (int, error)
}

// ProfileUpdate carries the user-editable profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Username  *string
	Bio       *string
	AvatarURL *string
}

// UserService encapsulates user and social graph use-cases.
type UserService struct {
	users     UserRepository
	followers FollowerRepository
	recipes   RecipeCounter
}

func NewUserService(users UserRepository, followers FollowerRepository, recipes RecipeCounter) *UserService {
	return &UserService{users: users, followers: followers, recipes: recipes}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, ErrUserNotFound
	}
	return user, err
}

// UpdateProfile applies update to the user. A new username must not be taken.
func (s *UserService) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) (types.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username != user.Username {
			if _, err := s.users.GetByUsername(ctx, username); err == nil {
				return types.User{}, auth.ErrDuplicateUsername
			} else if !errors.Is(err, store.ErrNotFound) {
				return types.User{}, fmt.Errorf("check username: %w", err)
			}
			user.Username = username
		}
	}
	if update.Bio != nil {
		user.Bio = update.Bio
	}
	if update.AvatarURL != nil {
		user.AvatarURL = update.AvatarURL
	}

	updated, err := s.users.UpdateProfile(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return types.User{}, auth.ErrDuplicateUsername
		}
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}
	return updated, nil
}

// Profile returns the public profile of username. viewerID is 0 for
// anonymous callers.
func (s *UserService) Profile(ctx context.Context, username string, viewerID int) (types.UserProfile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.UserProfile{}, ErrUserNotFound
		}
		return types.UserProfile{}, err
	}

	profile := types.UserProfile{
		ID:        user.ID,
		Username:  user.Username,
		Bio:       user.Bio,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
	if profile.FollowersCount, err = s.followers.CountFollowers(ctx, user.ID); err != nil {
		return types.UserProfile{}, err
	}
	if profile.FollowingCount, err = s.followers.CountFollowing(ctx, user.ID); err != nil {
		return types.UserProfile{}, err
	}
	if profile.RecipesCount, err = s.recipes.CountByAuthor(ctx, user.ID); err != nil {
		return types.UserProfile{}, err
	}

	if viewerID != 0 && viewerID != user.ID {
		_, err := s.followers.Get(ctx, viewerID, user.ID)
		switch {
		case err == nil:
			profile.IsFollowing = true
		case !errors.Is(err, store.ErrNotFound):
			return types.UserProfile{}, err
		}
	}
	return profile, nil
}

// Follow makes followerID follow targetID.
func (s *UserService) Follow(ctx context.Context, followerID, targetID int) error {
	if followerID == targetID {
		return ErrSelfFollow
	}
	if _, err := s.GetByID(ctx, targetID); err != nil {
		return err
	}

	if _, err := s.followers.Create(ctx, followerID, targetID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrAlreadyFollowing
		}
		return err
	}
	return nil
}

// Unfollow removes the follow edge from followerID to targetID.
func (s *UserService) Unfollow(ctx context.Context, followerID, targetID int) error {
	if err := s.followers.Delete(ctx, followerID, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFollowing
		}
		return err
	}
	return nil
}

func (s *UserService) Followers(ctx context.Context, userID, offset, limit int) ([]types.UserPublic, error) {
	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followers.ListFollowers(ctx, userID, offset, limit)
}

func (s *UserService) Following(ctx context.Context, userID, offset, limit int) ([]types.UserPublic, error) {
	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followers.ListFollowing(ctx, userID, offset, limit)
}
