// Package fanout drives a Notifier over a recipient set and turns each
// attempt into a ledger entry.
//
// Fan-out is best-effort: every recipient gets exactly one attempt, a
// failure for one recipient never affects another, and nothing is retried.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sos-api/internal/domain"
	"github.com/sos-api/internal/metrics"
	"github.com/sos-api/internal/pkg/phone"
	"golang.org/x/sync/errgroup"
)

// UnconfiguredMessage is the ledger error recorded when no SMS transport exists.
const UnconfiguredMessage = "SMS not configured - emergency logged for manual notification"

const (
	defaultTimeout = 10 * time.Second
	defaultWorkers = 8
)

// Notifier attempts delivery of one message. Implementations must report
// transport problems through the returned outcome and never panic or block
// past ctx.
type Notifier interface {
	Send(ctx context.Context, to, message string) domain.DeliveryOutcome
}

type Options struct {
	Timeout time.Duration // per-recipient bound on Notifier.Send
	Workers int           // concurrent sends
	Metrics *metrics.Metrics
}

type Engine struct {
	notifier Notifier
	timeout  time.Duration
	workers  int
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewEngine(n Notifier, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Engine{
		notifier: n,
		timeout:  opts.Timeout,
		workers:  opts.Workers,
		metrics:  opts.Metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FanOut notifies every recipient about alert and returns one ledger entry
// per recipient, in recipient order. Sends run on a bounded pool; the
// returned slice is complete only after all of them have finished.
func (e *Engine) FanOut(ctx context.Context, alert *domain.Alert, recipients []domain.Recipient) []domain.NotificationResult {
	start := time.Now()
	msg := Message(alert)
	ledger := make([]domain.NotificationResult, len(recipients))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, rc := range recipients {
		g.Go(func() error {
			ledger[i] = e.notify(ctx, alert.AlertID, rc, msg)
			return nil
		})
	}
	_ = g.Wait()

	e.metrics.FanOut(time.Since(start), len(recipients))
	return ledger
}

func (e *Engine) notify(ctx context.Context, alertID string, rc domain.Recipient, msg string) domain.NotificationResult {
	to := phone.Normalize(rc.Phone)
	entry := domain.NotificationResult{
		Name:         rc.Name,
		Phone:        to,
		Relationship: rc.Relationship,
		Response:     domain.ResponsePending,
	}

	switch out := e.send(ctx, to, msg); out.Kind {
	case domain.DeliverySentKind:
		entry.Status = domain.DeliverySent
	case domain.DeliveryUnconfiguredKind:
		entry.Status = domain.DeliveryLogged
		entry.Error = UnconfiguredMessage
	default:
		entry.Status = domain.DeliveryFailed
		entry.Error = "SMS failed: " + out.Detail
		slog.Warn("sos notification failed", "alert_id", alertID, "phone", to, "err", out.Detail)
	}
	entry.NotifiedAt = e.now()
	e.metrics.Notification(string(entry.Status))
	return entry
}

// send bounds a single Notifier call by e.timeout even when the notifier
// ignores its context. A send that overruns is recorded as failed and its
// goroutine is left to finish on its own.
func (e *Engine) send(ctx context.Context, to, msg string) domain.DeliveryOutcome {
	sendCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan domain.DeliveryOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.OutcomeFailed(fmt.Sprint(r))
			}
		}()
		done <- e.notifier.Send(sendCtx, to, msg)
	}()

	select {
	case out := <-done:
		return out
	case <-sendCtx.Done():
		// A caller cancellation is not the per-send bound running out.
		if err := ctx.Err(); err != nil {
			return domain.OutcomeFailed("send cancelled: " + err.Error())
		}
		return domain.OutcomeFailed(fmt.Sprintf("timed out after %s", e.timeout))
	}
}

// Message renders the SMS body for alert.
func Message(a *domain.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EMERGENCY SOS: %s needs help.\n", nonEmpty(a.UserName, "A registered user"))
	fmt.Fprintf(&b, "Type: %s\n", strings.ReplaceAll(string(a.EmergencyType), "_", " "))
	if a.UserPhone != "" {
		fmt.Fprintf(&b, "Call: %s\n", a.UserPhone)
	}
	fmt.Fprintf(&b, "Location: https://maps.google.com/?q=%.6f,%.6f\n", a.Location.Latitude, a.Location.Longitude)
	if a.Location.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", a.Location.Address)
	}
	if a.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", a.Description)
	}
	fmt.Fprintf(&b, "Time: %s\n", a.CreatedAt.Format("02 Jan 2006 15:04 MST"))
	b.WriteString("Please respond immediately or call 112.")
	return b.String()
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
