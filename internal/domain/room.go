package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultTheme = "ember"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrNotRoomCreator    = errors.New("only the room creator can do that")
	ErrScheduledInPast   = errors.New("scheduled time is in the past")
	ErrInvalidRoomName   = errors.New("invalid room name")
)

// Room is a named audio session. A room is either live (no scheduled
// time) or scheduled (future ScheduledAt); the constructors keep the two
// states from blurring.
type Room struct {
	ID          string     `bson:"_id" json:"id"`
	Name        string     `bson:"name" json:"name"`
	Topic       string     `bson:"topic,omitempty" json:"topic,omitempty"`
	Theme       string     `bson:"theme" json:"theme"`
	CreatorID   string     `bson:"creator_id" json:"creatorId"`
	Live        bool       `bson:"live" json:"live"`
	ScheduledAt *time.Time `bson:"scheduled_at,omitempty" json:"scheduledAt,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
}

type RoomRepository interface {
	Insert(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	GetLive(ctx context.Context) ([]Room, error)
	GetScheduledAfter(ctx context.Context, after time.Time) ([]Room, error)
	Delete(ctx context.Context, id string) error
	EnsureIndexes(ctx context.Context) error
}

func NewRoom(name, topic, theme, creatorID string) *Room {
	if theme == "" {
		theme = DefaultTheme
	}

	return &Room{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Topic:     strings.TrimSpace(topic),
		Theme:     theme,
		CreatorID: creatorID,
		Live:      true,
		CreatedAt: time.Now(),
	}
}

func NewScheduledRoom(name, topic, theme, creatorID string, startAt time.Time) (*Room, error) {
	if !startAt.After(time.Now()) {
		return nil, ErrScheduledInPast
	}

	room := NewRoom(name, topic, theme, creatorID)
	room.Live = false
	room.ScheduledAt = &startAt

	return room, nil
}

func (r *Room) IsLive() bool {
	return r.Live && r.ScheduledAt == nil
}

func (r *Room) IsScheduled() bool {
	return r.ScheduledAt != nil && r.ScheduledAt.After(time.Now())
}

func (r *Room) IsCreator(userID string) bool {
	return userID != "" && r.CreatorID == userID
}
