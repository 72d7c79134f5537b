package rooms

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hearthlabs/hearth/internal/catalog"
	"github.com/hearthlabs/hearth/internal/infrastructure/json"
	"github.com/hearthlabs/hearth/internal/session"
)

type Handler struct {
	catalog *catalog.Sync
	manager *session.Manager
}

func NewHandler(catalog *catalog.Sync, manager *session.Manager) *Handler {
	return &Handler{
		catalog: catalog,
		manager: manager,
	}
}

// GetLiveRoomsHandler serves the live half of the catalog snapshot. A
// refresh is attempted first; the throttle inside the catalog decides
// whether it actually hits the store.
func (h *Handler) GetLiveRoomsHandler(w http.ResponseWriter, r *http.Request) {
	snap, _ := h.catalog.Refresh(r.Context())

	json.Write(w, http.StatusOK, catalogResponse{
		Rooms:       snap.Live,
		RefreshedAt: snap.RefreshedAt,
		Fallback:    snap.Fallback,
	})
}

func (h *Handler) GetUpcomingRoomsHandler(w http.ResponseWriter, r *http.Request) {
	snap, _ := h.catalog.Refresh(r.Context())

	json.Write(w, http.StatusOK, catalogResponse{
		Rooms:       snap.Upcoming,
		RefreshedAt: snap.RefreshedAt,
		Fallback:    snap.Fallback,
	})
}

func (h *Handler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	room, err := h.manager.CreateRoom(r.Context(), req.Name, req.Topic, req.Theme, req.ScheduledAt)
	if err != nil {
		json.WriteDomainError(w, err)
		return
	}

	json.Write(w, http.StatusCreated, createRoomResponse{Room: *room})
}

func (h *Handler) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteBadRequestError(w, "roomId is required")
		return
	}

	if err := h.manager.DeleteRoom(r.Context(), roomID); err != nil {
		json.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
