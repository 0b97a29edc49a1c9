package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sos-api/internal/domain"
	"github.com/sos-api/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string                `json:"message,omitempty"`
	Error   string                `json:"error,omitempty"`
	Fields  []validate.FieldError `json:"fields,omitempty"`
}

// AuthEnvelope wraps login and refresh responses.
type AuthEnvelope struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
}

// NotificationReport summarizes a ledger by delivery status.
type NotificationReport struct {
	Total   int                         `json:"total"`
	Sent    int                         `json:"sent"`
	Logged  int                         `json:"logged"`
	Failed  int                         `json:"failed"`
	Results []domain.NotificationResult `json:"results"`
}

// CreateAlertEnvelope is returned when an alert is raised.
type CreateAlertEnvelope struct {
	Message       string              `json:"message"`
	Alert         domain.AlertSummary `json:"alert"`
	Notifications NotificationReport  `json:"notifications"`
}

// AlertListEnvelope wraps list views, which never carry the ledger.
type AlertListEnvelope struct {
	Count  int                   `json:"count"`
	Alerts []domain.AlertSummary `json:"alerts"`
}

func newReport(ledger []domain.NotificationResult) NotificationReport {
	rep := NotificationReport{Total: len(ledger), Results: ledger}
	if rep.Results == nil {
		rep.Results = []domain.NotificationResult{}
	}
	for _, e := range ledger {
		switch e.Status {
		case domain.DeliverySent:
			rep.Sent++
		case domain.DeliveryLogged:
			rep.Logged++
		case domain.DeliveryFailed:
			rep.Failed++
		}
	}
	return rep
}

func newAlertList(alerts []domain.Alert) AlertListEnvelope {
	out := AlertListEnvelope{Count: len(alerts), Alerts: make([]domain.AlertSummary, len(alerts))}
	for i := range alerts {
		out.Alerts[i] = alerts[i].Summary()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps a service error onto a status code. Unrecognised errors are
// logged and reported as 500 without their text.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.Error
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, MessageEnvelope{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoContacts):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
