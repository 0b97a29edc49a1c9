package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sos-api/internal/application/fanout"
	"github.com/sos-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/sos-api/internal/infrastructure/jwt"
	"github.com/sos-api/internal/metrics"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      *dynamo.UserRepo
	SessionRepo   *dynamo.SessionRepo
	AlertRepo     *dynamo.AlertRepo
	Notifier      fanout.Notifier
	SMSConfigured bool // false when Notifier only logs
	JWTProvider   *jwtinfra.Provider
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
}
