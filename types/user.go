package types

import "time"

// Role is the authorization level of a user account.
type Role string

// Supported roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// User represents an account in the system.
// It contains identity, role, profile, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address. It is unique and used to log in.
	Email string `json:"email" db:"email"`

	// Username is the unique public handle chosen by the user.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"hashed_password"`

	// Bio is an optional short profile text.
	Bio *string `json:"bio" db:"bio"`

	// AvatarURL points to the user's profile picture, if any.
	AvatarURL *string `json:"avatar_url" db:"avatar_url"`

	// Role indicates the user's authorization level within the system.
	Role Role `json:"role" db:"role"`

	// IsActive is false for suspended accounts, which can no longer log in.
	IsActive bool `json:"is_active" db:"is_active"`

	// IsVerified marks accounts whose email address has been confirmed.
	IsVerified bool `json:"is_verified" db:"is_verified"`

	// GoogleID links the account to a Google identity.
	GoogleID *string `json:"-" db:"google_id"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`

	// LastLogin is the timestamp of the most recent successful login.
	LastLogin *time.Time `json:"last_login" db:"last_login"`
}

// UserProfile is the public view of a user with social counters.
type UserProfile struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	Bio            *string   `json:"bio"`
	AvatarURL      *string   `json:"avatar_url"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	RecipesCount   int       `json:"recipes_count"`
	IsFollowing    bool      `json:"is_following"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserPublic is the minimal public identity used in follower listings.
type UserPublic struct {
	ID        int     `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

// Follower is a directed edge of the social graph: FollowerID follows FollowingID.
type Follower struct {
	ID          int       `json:"id" db:"id"`
	FollowerID  int       `json:"follower_id" db:"follower_id"`
	FollowingID int       `json:"following_id" db:"following_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
