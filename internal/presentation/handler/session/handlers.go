package session

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hearthlabs/hearth/internal/infrastructure/json"
	"github.com/hearthlabs/hearth/internal/notify"
	"github.com/hearthlabs/hearth/internal/session"
)

type Handler struct {
	manager *session.Manager
	feed    *notify.Feed
}

func NewHandler(manager *session.Manager, feed *notify.Feed) *Handler {
	return &Handler{
		manager: manager,
		feed:    feed,
	}
}

func (h *Handler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteBadRequestError(w, "roomId is required")
		return
	}

	if err := h.manager.Join(r.Context(), roomID); err != nil {
		json.WriteDomainError(w, err)
		return
	}

	json.Write(w, http.StatusOK, sessionResponse{Session: h.manager.Snapshot()})
}

func (h *Handler) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Leave(r.Context()); err != nil {
		json.WriteDomainError(w, err)
		return
	}

	json.Write(w, http.StatusOK, sessionResponse{Session: h.manager.Snapshot()})
}

func (h *Handler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, sessionResponse{Session: h.manager.Snapshot()})
}

// ToggleMuteHandler flips or forces the local live mute. An empty body
// means plain toggle.
func (h *Handler) ToggleMuteHandler(w http.ResponseWriter, r *http.Request) {
	var req muteRequest
	if err := json.Read(r, &req); err != nil && !errors.Is(err, io.EOF) {
		json.WriteValidationError(w, err)
		return
	}

	muted, err := h.manager.ToggleMute(r.Context(), req.Force)
	if err != nil {
		json.WriteDomainError(w, err)
		return
	}

	json.Write(w, http.StatusOK, muteResponse{Muted: muted})
}

func (h *Handler) GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			json.WriteBadRequestError(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	json.Write(w, http.StatusOK, notificationsResponse{
		Notifications: h.feed.Visible(limit),
	})
}
