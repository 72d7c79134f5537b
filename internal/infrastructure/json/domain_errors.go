package json

import (
	"errors"
	"net/http"

	"github.com/hearthlabs/hearth/internal/domain"
)

// WriteDomainError maps a domain sentinel to the status clients expect.
// Unknown errors fall through as 500 to avoid leaking internals.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrJoinCooldown):
		WriteError(w, http.StatusTooManyRequests, err, "Joined too recently, try again in a moment")
	case errors.Is(err, domain.ErrConcurrentJoin):
		WriteError(w, http.StatusConflict, err, "Another join is already in progress")
	case errors.Is(err, domain.ErrNoModerator):
		WriteError(w, http.StatusConflict, err, "No moderator is present in this room")
	case errors.Is(err, domain.ErrDuplicateRequest):
		WriteError(w, http.StatusConflict, err, "A speak request is already pending")
	case errors.Is(err, domain.ErrNotInRoom):
		WriteError(w, http.StatusConflict, err, "Not currently in a room")
	case errors.Is(err, domain.ErrRoomAlreadyExists):
		WriteError(w, http.StatusConflict, err, "A room with this id already exists")
	case errors.Is(err, domain.ErrPermissionDenied):
		WriteError(w, http.StatusForbidden, err, "Moderator rights are required for this action")
	case errors.Is(err, domain.ErrNotRoomCreator):
		WriteError(w, http.StatusForbidden, err, "Only the room creator may do this")
	case errors.Is(err, domain.ErrRoomNotFound):
		WriteError(w, http.StatusNotFound, err, "Room not found")
	case errors.Is(err, domain.ErrParticipantNotFound):
		WriteError(w, http.StatusNotFound, err, "Participant not found")
	case errors.Is(err, domain.ErrScheduledInPast):
		WriteError(w, http.StatusBadRequest, err, "Scheduled start must be in the future")
	case errors.Is(err, domain.ErrInvalidRoomName):
		WriteError(w, http.StatusBadRequest, err, err.Error())
	case errors.Is(err, domain.ErrJoinTimeout):
		WriteError(w, http.StatusGatewayTimeout, err, "Join did not complete in time")
	case errors.Is(err, domain.ErrStoreUnavailable):
		WriteError(w, http.StatusBadGateway, err, "The room store is unreachable, try again shortly")
	case errors.Is(err, domain.ErrTransportUnavailable):
		WriteError(w, http.StatusBadGateway, err, "The voice service is unreachable, try again shortly")
	default:
		WriteInternalError(w, err)
	}
}
