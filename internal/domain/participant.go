package domain

import (
	"context"
	"errors"
	"time"
)

var ErrParticipantNotFound = errors.New("participant not found")

// Role is the capability level of a participant inside a room.
// Moderator is a superset of speaker.
type Role int

const (
	RoleListener Role = iota
	RoleSpeaker
	RoleModerator
)

func (r Role) String() string {
	switch r {
	case RoleModerator:
		return "moderator"
	case RoleSpeaker:
		return "speaker"
	default:
		return "listener"
	}
}

func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// Participant is a user's membership record within a room. Exactly one
// row exists per (room, user); the unique index in the store enforces it.
type Participant struct {
	RoomID      string    `bson:"room_id" json:"roomId"`
	UserID      string    `bson:"user_id" json:"userId"`
	IsModerator bool      `bson:"is_moderator" json:"isModerator"`
	IsSpeaking  bool      `bson:"is_speaking" json:"isSpeaking"`
	Muted       bool      `bson:"muted" json:"muted"`
	JoinedAt    time.Time `bson:"joined_at" json:"joinedAt"`
}

// RoleFlags collects the durable role fields that moderation writes and
// catalog refresh reconciles. Transient fields (connection status, live
// mute) never travel through here.
type RoleFlags struct {
	IsModerator bool
	IsSpeaking  bool
	Muted       bool
}

type ParticipantRepository interface {
	// Upsert inserts the row for (room, user) if absent and returns the
	// stored row. A duplicate-key conflict is not an error: the existing
	// row wins and is returned unchanged.
	Upsert(ctx context.Context, p *Participant) (*Participant, error)
	GetByRoom(ctx context.Context, roomID string) ([]Participant, error)
	GetByRoomAndUser(ctx context.Context, roomID, userID string) (*Participant, error)
	SetRoleFlags(ctx context.Context, roomID, userID string, flags RoleFlags) (*Participant, error)
	Delete(ctx context.Context, roomID, userID string) error
	DeleteByRoom(ctx context.Context, roomID string) error
	EnsureIndexes(ctx context.Context) error
}

func NewParticipant(roomID, userID string, moderator bool) *Participant {
	return &Participant{
		RoomID:      roomID,
		UserID:      userID,
		IsModerator: moderator,
		// The creator speaks from the first second; everyone else asks.
		IsSpeaking: moderator,
		JoinedAt:   time.Now(),
	}
}

func (p *Participant) Role() Role {
	switch {
	case p.IsModerator:
		return RoleModerator
	case p.IsSpeaking:
		return RoleSpeaker
	default:
		return RoleListener
	}
}

func (p *Participant) Flags() RoleFlags {
	return RoleFlags{
		IsModerator: p.IsModerator,
		IsSpeaking:  p.IsSpeaking,
		Muted:       p.Muted,
	}
}
