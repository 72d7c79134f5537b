package session

import (
	"context"

	"github.com/hearthlabs/hearth/internal/infrastructure/changefeed"
)

// AudioTransport is the control-plane surface of the voice link. Media
// negotiation happens elsewhere; the manager only issues room and role
// commands and reads their acknowledgements.
type AudioTransport interface {
	Join(ctx context.Context, roomID, userID, displayName, avatarRef string, isModerator, isSpeaker bool) error
	Leave(ctx context.Context) error
	FireLeave()
	ToggleMute(ctx context.Context, force *bool) (bool, error)
	RequestToSpeak(ctx context.Context, userID string) error
	ApproveSpeaker(ctx context.Context, userID string) error
	RejectSpeaker(ctx context.Context, userID string) error
	BlockSpeaker(ctx context.Context, userID string) error
}

// Slot is the durable single-value store holding the last-joined room
// id across process restarts.
type Slot interface {
	Load(ctx context.Context) (string, error)
	Store(ctx context.Context, roomID string) error
	Clear(ctx context.Context) error
}

// ChangePublisher announces successful store writes on the change feed.
type ChangePublisher interface {
	PublishChange(ctx context.Context, table changefeed.Table, op changefeed.Op, row any) error
}
