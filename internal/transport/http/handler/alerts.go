package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sos-api/internal/application/alert"
	"github.com/sos-api/internal/domain"
	"github.com/sos-api/internal/transport/http/middleware"
)

// identityResolver loads the creator snapshot for a new alert.
type identityResolver interface {
	Identity(ctx context.Context, userID string) (domain.Identity, error)
}

// AlertHandler handles SOS alert endpoints.
type AlertHandler struct {
	svc        alert.Service
	identities identityResolver
}

func NewAlertHandler(svc alert.Service, identities identityResolver) *AlertHandler {
	return &AlertHandler{svc: svc, identities: identities}
}

func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	creator, err := h.identities.Identity(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	a, ledger, err := h.svc.Create(r.Context(), creator, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateAlertEnvelope{
		Message:       "SOS alert created",
		Alert:         a.Summary(),
		Notifications: newReport(ledger),
	})
}

func (h *AlertHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.ListActive(r.Context())
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAlertList(alerts))
}

func (h *AlertHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.listByUser(w, r, claims.UserID)
}

// ListByUser serves another user's history to that user or an admin.
func (h *AlertHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID := chi.URLParam(r, "id")
	if claims.UserID != userID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "cannot view another user's alerts")
		return
	}
	h.listByUser(w, r, userID)
}

func (h *AlertHandler) listByUser(w http.ResponseWriter, r *http.Request, userID string) {
	alerts, err := h.svc.ListByUser(r.Context(), userID)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAlertList(alerts))
}

func (h *AlertHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := parseFinite(q.Get("lat"))
	lon, errLon := parseFinite(q.Get("lon"))
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}
	var radius float64
	if raw := q.Get("radius"); raw != "" {
		var err error
		if radius, err = parseFinite(raw); err != nil {
			writeError(w, http.StatusBadRequest, "radius must be a number of kilometres")
			return
		}
	}
	alerts, err := h.svc.ListNearby(r.Context(), lat, lon, radius)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAlertList(alerts))
}

// parseFinite is strconv.ParseFloat without NaN and ±Inf, which it accepts.
func parseFinite(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return f, nil
}

func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AlertHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), domain.Identity{UserID: claims.UserID}, req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Summary())
}

func (h *AlertHandler) RecordResponse(w http.ResponseWriter, r *http.Request) {
	var req domain.ContactResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.svc.RecordContactResponse(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AlertHandler) NotifyContacts(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ledger, err := h.svc.NotifyContacts(r.Context(), chi.URLParam(r, "id"), domain.Identity{UserID: claims.UserID})
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReport(ledger))
}
