package domain

import "errors"

// Session and moderation failure modes. Read-path failures are absorbed
// by the catalog's placeholder fallback and never reach callers as these.
var (
	ErrConcurrentJoin      = errors.New("another join is already in flight")
	ErrJoinCooldown        = errors.New("join attempted too soon after the previous one")
	ErrJoinTimeout         = errors.New("join did not complete in time")
	ErrNotInRoom           = errors.New("not currently in a room")
	ErrNoModerator         = errors.New("no moderator available in the room")
	ErrDuplicateRequest    = errors.New("a speak request is already pending")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrStoreUnavailable    = errors.New("persistent store unavailable")
	ErrTransportUnavailable = errors.New("audio transport unavailable")
)
