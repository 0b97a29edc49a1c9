// Package alert owns the SOS alert lifecycle: creation with broadcast
// fan-out, targeted contact notification, status transitions and the
// per-alert notification ledger.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sos-api/internal/domain"
	"github.com/sos-api/internal/metrics"
	"github.com/sos-api/internal/pkg/geo"
	"github.com/sos-api/internal/pkg/id"
	"github.com/sos-api/internal/pkg/validate"
)

// DynamoDB attribute names used in transition update maps.
const (
	fieldResolvedAt      = "resolved_at"
	fieldResolvedBy      = "resolved_by"
	fieldResolutionNotes = "resolution_notes"
)

const defaultRadiusKm = 5.0

type Service interface {
	Create(ctx context.Context, creator domain.Identity, req domain.CreateAlertRequest) (*domain.Alert, []domain.NotificationResult, error)
	NotifyContacts(ctx context.Context, alertID string, requester domain.Identity) ([]domain.NotificationResult, error)
	UpdateStatus(ctx context.Context, alertID string, resolver domain.Identity, req domain.UpdateStatusRequest) (*domain.Alert, error)
	RecordContactResponse(ctx context.Context, alertID string, req domain.ContactResponseRequest) (*domain.Alert, error)
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	ListActive(ctx context.Context) ([]domain.Alert, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Alert, error)
	ListNearby(ctx context.Context, lat, lon, radiusKm float64) ([]domain.Alert, error)
}

type alertStore interface {
	Put(ctx context.Context, a *domain.Alert) error
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	SetLedger(ctx context.Context, alertID string, ledger []domain.NotificationResult) error
	Transition(ctx context.Context, alertID string, status domain.AlertStatus, fields map[string]interface{}) error
	ListActive(ctx context.Context) ([]domain.Alert, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Alert, error)
	ListActiveWithin(ctx context.Context, lat, lon, radiusMeters float64) ([]domain.Alert, error)
}

// recipientDirectory resolves fan-out targets.
type recipientDirectory interface {
	ActiveUsersExcept(ctx context.Context, userID string) ([]domain.Recipient, error)
	EmergencyContacts(ctx context.Context, userID string) ([]domain.Recipient, error)
}

type fanOuter interface {
	FanOut(ctx context.Context, a *domain.Alert, recipients []domain.Recipient) []domain.NotificationResult
}

type service struct {
	repo            alertStore
	directory       recipientDirectory
	fanout          fanOuter
	metrics         *metrics.Metrics
	defaultRadiusKm float64
	now             func() time.Time
}

type ServiceDeps struct {
	AlertRepo       alertStore
	Directory       recipientDirectory
	FanOut          fanOuter
	Metrics         *metrics.Metrics
	DefaultRadiusKm float64
}

func NewService(deps ServiceDeps) Service {
	radius := deps.DefaultRadiusKm
	if radius <= 0 {
		radius = defaultRadiusKm
	}
	return &service{
		repo:            deps.AlertRepo,
		directory:       deps.Directory,
		fanout:          deps.FanOut,
		metrics:         deps.Metrics,
		defaultRadiusKm: radius,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new active alert and then broadcasts it to every other
// active user. Only a failed write of the alert itself is returned as an
// error; anything that goes wrong while notifying is logged and leaves the
// alert in place with whatever ledger could be produced.
func (s *service) Create(ctx context.Context, creator domain.Identity, req domain.CreateAlertRequest) (*domain.Alert, []domain.NotificationResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, nil, err
	}
	emergencyType := domain.EmergencyType(req.EmergencyType)
	if emergencyType == "" {
		emergencyType = domain.EmergencyOther
	}
	now := s.now()
	a := &domain.Alert{
		AlertID:      id.New(),
		UserID:       creator.UserID,
		UserName:     creator.Name,
		UserPhone:    creator.Phone,
		UserIDNumber: creator.IDNumber,
		Location: domain.Location{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Address:   req.Address,
		},
		Description:      req.Description,
		EmergencyType:    emergencyType,
		Priority:         domain.PriorityHigh,
		Status:           domain.AlertActive,
		NotifiedContacts: []domain.NotificationResult{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Put(ctx, a); err != nil {
		return nil, nil, fmt.Errorf("create alert: %w", err)
	}
	s.metrics.AlertCreated(string(a.EmergencyType))
	slog.Info("sos alert created", "alert_id", a.AlertID, "user_id", a.UserID, "type", a.EmergencyType)

	// The alert exists now; a client disconnect must not cut the broadcast short.
	ledger := s.broadcast(context.WithoutCancel(ctx), a)
	a.NotifiedContacts = ledger
	return a, ledger, nil
}

func (s *service) broadcast(ctx context.Context, a *domain.Alert) (ledger []domain.NotificationResult) {
	ledger = []domain.NotificationResult{}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sos broadcast aborted", "alert_id", a.AlertID, "panic", r)
		}
	}()

	recipients, err := s.directory.ActiveUsersExcept(ctx, a.UserID)
	if err != nil {
		slog.Error("sos broadcast: resolve recipients", "alert_id", a.AlertID, "err", err)
		return ledger
	}
	ledger = s.fanout.FanOut(ctx, a, recipients)
	if err := s.repo.SetLedger(ctx, a.AlertID, ledger); err != nil {
		slog.Error("sos broadcast: persist ledger", "alert_id", a.AlertID, "err", err)
	}
	slog.Info("sos broadcast complete", "alert_id", a.AlertID, "recipients", len(recipients))
	return ledger
}

// NotifyContacts sends the alert to the creator's emergency contacts and
// replaces the stored ledger with the result.
func (s *service) NotifyContacts(ctx context.Context, alertID string, requester domain.Identity) ([]domain.NotificationResult, error) {
	a, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.UserID != requester.UserID {
		return nil, fmt.Errorf("only the alert creator can notify contacts: %w", domain.ErrForbidden)
	}
	contacts, err := s.directory.EmergencyContacts(ctx, requester.UserID)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, fmt.Errorf("add emergency contacts first: %w", domain.ErrNoContacts)
	}
	ledger := s.fanout.FanOut(ctx, a, contacts)
	if err := s.repo.SetLedger(ctx, a.AlertID, ledger); err != nil {
		return nil, fmt.Errorf("save notification ledger: %w", err)
	}
	return ledger, nil
}

// UpdateStatus moves an active alert to resolved or false_alarm. Only a
// resolution records who resolved it and when.
func (s *service) UpdateStatus(ctx context.Context, alertID string, resolver domain.Identity, req domain.UpdateStatusRequest) (*domain.Alert, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AlertActive {
		return nil, fmt.Errorf("alert is already %s: %w", a.Status, domain.ErrInvalidTransition)
	}

	target := domain.AlertStatus(req.Status)
	now := s.now()
	fields := map[string]interface{}{}
	if target == domain.AlertResolved {
		fields[fieldResolvedAt] = now
		fields[fieldResolvedBy] = resolver.UserID
	}
	if req.Notes != "" {
		fields[fieldResolutionNotes] = req.Notes
	}
	if err := s.repo.Transition(ctx, alertID, target, fields); err != nil {
		return nil, err
	}
	s.metrics.StatusTransition(string(target))

	a.Status = target
	a.UpdatedAt = now
	if target == domain.AlertResolved {
		a.ResolvedAt = &now
		a.ResolvedBy = resolver.UserID
	}
	if req.Notes != "" {
		a.ResolutionNotes = req.Notes
	}
	return a, nil
}

// RecordContactResponse updates the first ledger entry whose phone matches
// exactly, or appends a new entry when none does.
func (s *service) RecordContactResponse(ctx context.Context, alertID string, req domain.ContactResponseRequest) (*domain.Alert, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	resp := domain.ContactResponse(req.Response)
	matched := false
	for i := range a.NotifiedContacts {
		if a.NotifiedContacts[i].Phone == req.Phone {
			a.NotifiedContacts[i].Response = resp
			a.NotifiedContacts[i].NotifiedAt = now
			matched = true
			break
		}
	}
	if !matched {
		a.NotifiedContacts = append(a.NotifiedContacts, domain.NotificationResult{
			Phone:      req.Phone,
			Response:   resp,
			NotifiedAt: now,
		})
	}
	if err := s.repo.SetLedger(ctx, a.AlertID, a.NotifiedContacts); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	return s.repo.Get(ctx, alertID)
}

func (s *service) ListActive(ctx context.Context) ([]domain.Alert, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Alert, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListNearby returns active alerts within radiusKm of (lat, lon). A zero
// radius means the configured default.
func (s *service) ListNearby(ctx context.Context, lat, lon, radiusKm float64) ([]domain.Alert, error) {
	if !finite(lat, lon, radiusKm) {
		return nil, fmt.Errorf("coordinates and radius must be finite: %w", domain.ErrBadRequest)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinates out of range: %w", domain.ErrBadRequest)
	}
	if radiusKm < 0 {
		return nil, fmt.Errorf("radius must not be negative: %w", domain.ErrBadRequest)
	}
	if radiusKm == 0 {
		radiusKm = s.defaultRadiusKm
	}
	return s.repo.ListActiveWithin(ctx, lat, lon, geo.KmToMeters(radiusKm))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
