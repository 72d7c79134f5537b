package session

import (
	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/session"
)

// muteRequest optionally forces the mute state instead of toggling
type muteRequest struct {
	Force *bool `json:"force,omitempty"`
}

type muteResponse struct {
	Muted bool `json:"muted"`
}

type sessionResponse struct {
	Session session.Snapshot `json:"session"`
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}
