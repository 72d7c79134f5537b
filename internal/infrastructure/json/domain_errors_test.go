package json

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearthlabs/hearth/internal/domain"
)

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrJoinCooldown, http.StatusTooManyRequests},
		{domain.ErrConcurrentJoin, http.StatusConflict},
		{domain.ErrNoModerator, http.StatusConflict},
		{domain.ErrDuplicateRequest, http.StatusConflict},
		{domain.ErrNotInRoom, http.StatusConflict},
		{domain.ErrPermissionDenied, http.StatusForbidden},
		{domain.ErrNotRoomCreator, http.StatusForbidden},
		{domain.ErrRoomNotFound, http.StatusNotFound},
		{domain.ErrScheduledInPast, http.StatusBadRequest},
		{domain.ErrInvalidRoomName, http.StatusBadRequest},
		{domain.ErrJoinTimeout, http.StatusGatewayTimeout},
		{domain.ErrStoreUnavailable, http.StatusBadGateway},
		{domain.ErrTransportUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		WriteDomainError(w, tt.err)
		if w.Code != tt.status {
			t.Fatalf("%v -> %d, want %d", tt.err, w.Code, tt.status)
		}
	}
}
