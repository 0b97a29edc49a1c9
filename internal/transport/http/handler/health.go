package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

type storePinger interface {
	Ping(ctx context.Context) error
}

// HealthEnvelope reports readiness. SMS "logging" means alerts are stored
// and recipients are recorded for manual follow-up, not texted.
type HealthEnvelope struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	SMS    string `json:"sms"`
}

// HealthHandler handles the health-check endpoint.
type HealthHandler struct {
	store         storePinger
	smsConfigured bool
}

func NewHealthHandler(store storePinger, smsConfigured bool) *HealthHandler {
	return &HealthHandler{store: store, smsConfigured: smsConfigured}
}

// Ping answers 503 when the alert store is unreachable; an unconfigured
// SMS transport degrades delivery but does not fail readiness.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	env := HealthEnvelope{Status: "ok", Store: "ok", SMS: "configured"}
	if !h.smsConfigured {
		env.SMS = "logging"
	}
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.Error("health check: alert store unreachable", "err", err)
		env.Status, env.Store = "unavailable", "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, env)
		return
	}
	writeJSON(w, http.StatusOK, env)
}
