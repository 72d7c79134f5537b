package moderation

import "github.com/hearthlabs/hearth/internal/domain"

// targetRequest names the participant a moderator action applies to
type targetRequest struct {
	UserID string `json:"userId"`
}

type queueResponse struct {
	Queue []domain.SpeakRequest `json:"queue"`
}
