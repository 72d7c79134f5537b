package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ModerationEventType string

const (
	EventSpeakRequested   ModerationEventType = "speak_requested"
	EventSpeakerApproved  ModerationEventType = "speaker_approved"
	EventSpeakerRejected  ModerationEventType = "speaker_rejected"
	EventSpeakerBlocked   ModerationEventType = "speaker_blocked"
	EventSpeakerUnblocked ModerationEventType = "speaker_unblocked"
)

// ModerationAuditLog is a durable trace of moderator decisions, written
// best-effort after the decision has been applied.
type ModerationAuditLog struct {
	ID        string              `bson:"_id" json:"id"`
	RoomID    string              `bson:"room_id" json:"roomId"`
	EventType ModerationEventType `bson:"event_type" json:"eventType"`
	ActorID   string              `bson:"actor_id" json:"actorId"`
	TargetID  string              `bson:"target_id" json:"targetId"`
	Timestamp time.Time           `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any      `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type ModerationAuditRepository interface {
	Log(ctx context.Context, log *ModerationAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]ModerationAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewModerationLog(kind ModerationEventType, roomID, actorID, targetID string) *ModerationAuditLog {
	return &ModerationAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: kind,
		ActorID:   actorID,
		TargetID:  targetID,
		Timestamp: time.Now(),
	}
}
