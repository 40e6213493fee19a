package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// EngagementAction is the kind of interaction a user had with a recipe.
type EngagementAction int

// Supported engagement actions.
const (
	ActionView EngagementAction = iota
	ActionLike
	ActionUnlike
	ActionSave
	ActionUnsave
)

// String returns the compact string representation of the action
// used in the engagement log and on the wire.
func (a EngagementAction) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionLike:
		return "like"
	case ActionUnlike:
		return "unlike"
	case ActionSave:
		return "save"
	case ActionUnsave:
		return "unsave"
	default:
		return "unknown"
	}
}

// ParseEngagementAction is the inverse of EngagementAction.String.
func ParseEngagementAction(s string) (EngagementAction, error) {
	for a := ActionView; a <= ActionUnsave; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown engagement action %q", s)
}

func (a EngagementAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *EngagementAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEngagementAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// EngagementEvent is a single interaction published to the message broker
// and appended to the engagement log by the worker.
type EngagementEvent struct {
	// UserID is nil for anonymous views.
	UserID     *int             `json:"user_id,omitempty"`
	RecipeID   int              `json:"recipe_id"`
	Action     EngagementAction `json:"action"`
	OccurredAt time.Time        `json:"occurred_at"`
}
