package handler

import (
	"net/http"

	"github.com/homecast/cast-notifier/internal/cast"
)

// DeviceHandler exposes the registry's current device view.
type DeviceHandler struct {
	registry *cast.Registry
}

func NewDeviceHandler(registry *cast.Registry) *DeviceHandler {
	return &DeviceHandler{registry: registry}
}

// List handles GET /api/v1/devices
//
// @Summary  List currently known playback devices
// @Tags     devices
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/devices [get]
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices := h.registry.List()
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  devices,
		"total": len(devices),
	})
}
