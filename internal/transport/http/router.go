package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sos-api/internal/application/alert"
	"github.com/sos-api/internal/application/fanout"
	"github.com/sos-api/internal/application/session"
	"github.com/sos-api/internal/application/user"
	"github.com/sos-api/internal/config"
	"github.com/sos-api/internal/domain"
	"github.com/sos-api/internal/transport/http/handler"
	appmiddleware "github.com/sos-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Per user: alertBurst alerts back to back, then one every alertRefill. A
// second SOS after a dropped connection must still go through.
const (
	alertBurst  = 5
	alertRefill = 3 * time.Second
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10, for public credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	alertRL := appmiddleware.NewUserRateLimiter(rate.Every(alertRefill), alertBurst)

	engine := fanout.NewEngine(deps.Notifier, fanout.Options{
		Timeout: cfg.NotifyTimeout,
		Workers: cfg.FanOutWorkers,
		Metrics: deps.Metrics,
	})
	userSvc := user.NewService(deps.UserRepo)
	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenExpiry,
	})
	alertSvc := alert.NewService(alert.ServiceDeps{
		AlertRepo:       deps.AlertRepo,
		Directory:       user.NewDirectory(deps.UserRepo),
		FanOut:          engine,
		Metrics:         deps.Metrics,
		DefaultRadiusKm: cfg.NearbyDefaultRadiusKm,
	})

	healthH := handler.NewHealthHandler(deps.AlertRepo, deps.SMSConfigured)
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	alertH := handler.NewAlertHandler(alertSvc, userSvc)

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/me", userH.Me)
			r.Patch("/users/me", userH.UpdateMe)
			r.Get("/users/me/contacts", userH.ListContacts)
			r.Post("/users/me/contacts", userH.AddContact)
			r.Delete("/users/me/contacts/{contactID}", userH.RemoveContact)
			r.Get("/users/{id}/alerts", alertH.ListByUser)

			r.With(alertRL.Limit).Post("/alerts", alertH.Create)
			r.Get("/alerts/active", alertH.ListActive)
			r.Get("/alerts/mine", alertH.ListMine)
			r.Get("/alerts/nearby", alertH.Nearby)
			r.Get("/alerts/{id}", alertH.Get)
			r.Put("/alerts/{id}/status", alertH.UpdateStatus)
			r.Post("/alerts/{id}/responses", alertH.RecordResponse)
			r.Post("/alerts/{id}/notify-contacts", alertH.NotifyContacts)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users/{id}", userH.Get)
			})
		})
	})

	return r
}
