package rooms

import (
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
)

// createRoomRequest carries the settings for a new room
type createRoomRequest struct {
	Name        string     `json:"name"`                  // Display name, 3-64 characters
	Topic       string     `json:"topic,omitempty"`       // Free-text topic line
	Theme       string     `json:"theme,omitempty"`       // Color theme token
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"` // Future start time for a scheduled room
}

// createRoomResponse returns the stored room
type createRoomResponse struct {
	Room domain.Room `json:"room"`
}

// catalogResponse is one page of the room catalog
type catalogResponse struct {
	Rooms       []domain.RoomView `json:"rooms"`
	RefreshedAt time.Time         `json:"refreshedAt"`
	Fallback    bool              `json:"fallback,omitempty"` // true when serving placeholder data
}
