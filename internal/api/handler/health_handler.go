package handler

import (
	"net/http"
	"time"
)

// HealthHandler answers the liveness probe. Besides the usual ok flag the
// payload names the service and reports process uptime, enough to tell a
// crash-looping instance from a long-running one at a glance.
type HealthHandler struct {
	startedAt time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

// Health handles GET /health
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"service":        "cast-notifier",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}
