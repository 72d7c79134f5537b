package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifyUserJoined      NotificationType = "user_joined"
	NotifyUserLeft        NotificationType = "user_left"
	NotifySpeakerAdded    NotificationType = "speaker_added"
	NotifySpeakerRemoved  NotificationType = "speaker_removed"
	NotifyModeratorAction NotificationType = "moderator_action"
)

// Notification is a short-lived toast entry. It lives only in the
// in-memory feed; nothing here is persisted.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	UserID    string           `json:"userId"`
	UserName  string           `json:"userName"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewNotification(kind NotificationType, userID, userName string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		UserID:    userID,
		UserName:  userName,
		Timestamp: time.Now(),
	}
}

func NewModeratorActionNotification(userID, userName, action string) Notification {
	n := NewNotification(NotifyModeratorAction, userID, userName)
	n.Message = fmt.Sprintf("%s was %s by a moderator", userName, action)
	return n
}
