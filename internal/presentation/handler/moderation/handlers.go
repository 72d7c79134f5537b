package moderation

import (
	"context"
	"net/http"

	"github.com/hearthlabs/hearth/internal/infrastructure/json"
	"github.com/hearthlabs/hearth/internal/session"
)

type Handler struct {
	moderation *session.Moderation
}

func NewHandler(moderation *session.Moderation) *Handler {
	return &Handler{moderation: moderation}
}

// RequestToSpeakHandler asks for the floor on behalf of the local user.
// For a current speaker the same call steps them back to listener.
func (h *Handler) RequestToSpeakHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.moderation.RequestToSpeak(r.Context()); err != nil {
		json.WriteDomainError(w, err)
		return
	}
	json.Write(w, http.StatusOK, queueResponse{Queue: h.moderation.Queue()})
}

func (h *Handler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	h.target(w, r, h.moderation.Approve)
}

func (h *Handler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	h.target(w, r, h.moderation.Reject)
}

func (h *Handler) BlockHandler(w http.ResponseWriter, r *http.Request) {
	h.target(w, r, h.moderation.Block)
}

func (h *Handler) UnblockHandler(w http.ResponseWriter, r *http.Request) {
	h.target(w, r, h.moderation.Unblock)
}

func (h *Handler) GetQueueHandler(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, queueResponse{Queue: h.moderation.Queue()})
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request, action func(context.Context, string) error) {
	var req targetRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if req.UserID == "" {
		json.WriteBadRequestError(w, "userId is required")
		return
	}

	if err := action(r.Context(), req.UserID); err != nil {
		json.WriteDomainError(w, err)
		return
	}

	json.Write(w, http.StatusOK, queueResponse{Queue: h.moderation.Queue()})
}
