package httpx

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fleetglass/fleetglass/internal/devices"
	aerrors "github.com/fleetglass/fleetglass/internal/errors"
)

const defaultEventLimit = 50

// DeviceHandlers proxies dashboard requests to the device backend.
type DeviceHandlers struct {
	Client *devices.Client
	Logger *slog.Logger
}

// List handles GET /api/devices.
func (h *DeviceHandlers) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Client.List(r.Context())
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// Get handles GET /api/devices/{id}.
func (h *DeviceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	dev, err := h.Client.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dev)
}

// Events handles GET /api/devices/{id}/events?limit=N.
func (h *DeviceHandlers) Events(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			WriteAppError(w, aerrors.ValidationField("limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	events, err := h.Client.Events(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, events)
}

// Trend handles GET /api/devices/{id}/trend?metric=<name>.
func (h *DeviceHandlers) Trend(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		WriteAppError(w, aerrors.ValidationField("metric", "metric is required"))
		return
	}

	points, err := h.Client.Trend(r.Context(), r.PathValue("id"), metric)
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, points)
}

// UpdateSettings handles PUT /api/devices/{id}/settings.
func (h *DeviceHandlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings devices.Settings
	if !DecodeJSON(w, r, &settings) {
		return
	}

	if err := h.Client.UpdateSettings(r.Context(), r.PathValue("id"), settings); err != nil {
		h.writeBackendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncMe handles POST /api/me/sync.
func (h *DeviceHandlers) SyncMe(w http.ResponseWriter, r *http.Request) {
	op, err := h.Client.SyncMe(r.Context())
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, op)
}

// writeBackendError renders a backend or token-resolution failure. Token
// resolution failures read as "not signed in for this call" and come back
// as 401 so the dashboard can prompt for re-authentication.
func (h *DeviceHandlers) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	if aerrors.IsTokenResolutionFailure(err) {
		h.logger().DebugContext(r.Context(), "bearer resolution failed", "error", err)
	} else {
		h.logger().WarnContext(r.Context(), "device backend call failed", "error", err)
	}
	WriteAppError(w, err)
}

func (h *DeviceHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
