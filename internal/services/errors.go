package services

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrVideoNotFound  = errors.New("video not found")

	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")

	ErrAlreadyLiked = errors.New("recipe already liked")
	ErrNotLiked     = errors.New("recipe not liked")
	ErrAlreadySaved = errors.New("recipe already saved")
	ErrNotSaved     = errors.New("recipe not saved")

	// ErrStorageUnavailable is returned for uploads when no object storage
	// backend is configured.
	ErrStorageUnavailable = errors.New("video storage is not configured")
)

// ValidationError reports input that is well-formed JSON but semantically
// invalid.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}
