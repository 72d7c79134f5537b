package domain

import (
	"context"
	"strings"
	"time"

	"github.com/hearthlabs/hearth/internal/infrastructure/validate"
)

// Profile is the public identity of a user: what the catalog shows next
// to a speaker tile.
type Profile struct {
	UserID      string    `bson:"_id" json:"userId"`
	DisplayName string    `bson:"display_name" json:"displayName"`
	AvatarRef   string    `bson:"avatar_ref,omitempty" json:"avatarRef,omitempty"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

type ProfileRepository interface {
	Upsert(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, userID string) (*Profile, error)
	GetByIDs(ctx context.Context, userIDs []string) (map[string]Profile, error)
}

func NewProfile(userID, rawName, avatarRef string) (*Profile, error) {
	validateDisplayName := validate.Compose(
		validate.Required(),
		validate.MinLength(2),
		validate.MaxLength(32),
		validate.Matches(`^[^\x00-\x1f]+$`, "display name contains control characters"),
	)

	if err := validateDisplayName(rawName); err != nil {
		return nil, err
	}

	return &Profile{
		UserID:      userID,
		DisplayName: strings.TrimSpace(rawName),
		AvatarRef:   avatarRef,
		UpdatedAt:   time.Now(),
	}, nil
}
