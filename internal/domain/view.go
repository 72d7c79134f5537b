package domain

// Speaker is a read-only projection of a participant row with
// IsSpeaking set, enriched from the profile store. Derived during
// catalog refresh, never persisted.
type Speaker struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef,omitempty"`
	IsModerator bool   `json:"isModerator"`
	Muted       bool   `json:"muted"`
}

// RoomView is the denormalized record the UI renders: the room plus its
// speaker list and headcount.
type RoomView struct {
	Room             Room      `json:"room"`
	Speakers         []Speaker `json:"speakers"`
	ParticipantCount int       `json:"participantCount"`
	Placeholder      bool      `json:"placeholder,omitempty"`
}

// SpeakRequest is a pending ask by a listener to become a speaker. Held
// only in the transport's side channel and the local queue; cleared on
// approve, reject, or disconnect.
type SpeakRequest struct {
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}
