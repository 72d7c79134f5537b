package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hearthlabs/hearth/internal/domain"
	"github.com/hearthlabs/hearth/internal/infrastructure/json"
)

var (
	startTime       = time.Now()
	healthy   int32 = 1 // 1: healthy, 0 = unhealthy
)

type StatusFunc func() domain.ConnectionStatus

type Handler struct {
	voiceStatus StatusFunc
}

func NewHandler(voiceStatus StatusFunc) *Handler {
	return &Handler{voiceStatus: voiceStatus}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	voice := domain.Disconnected
	if h.voiceStatus != nil {
		voice = h.voiceStatus()
	}

	if atomic.LoadInt32(&healthy) == 0 {
		json.Write(w, http.StatusServiceUnavailable, healthResponse{
			Status:      "unhealthy",
			VoiceStatus: string(voice),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Uptime:      time.Since(startTime).Round(time.Second).String(),
		})
		return
	}

	json.Write(w, http.StatusOK, healthResponse{
		Status:      "ok",
		VoiceStatus: string(voice),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      time.Since(startTime).Round(time.Second).String(),
	})
}
