package http

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sos-api/internal/config"
	"github.com/sos-api/internal/domain"
	jwtinfra "github.com/sos-api/internal/infrastructure/jwt"
	"github.com/sos-api/internal/infrastructure/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter wires the router with a real RS256 provider over temp keys.
// Stores are left nil: every request below is answered before a handler
// reaches them.
func newTestRouter(t *testing.T) (http.Handler, *jwtinfra.Provider) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath,
		pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}), 0600))
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath,
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes}), 0600))

	cfg := &config.Config{
		JWTPrivateKeyPath:  privPath,
		JWTPublicKeyPath:   pubPath,
		JWTExpiry:          time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		NotifyTimeout:      time.Second,
		FanOutWorkers:      2,
		AllowedOrigins:     []string{"*"},
	}
	provider, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)

	return NewRouter(cfg, &Deps{
		Notifier:    sns.Unconfigured{},
		JWTProvider: provider,
		Gatherer:    prometheus.NewRegistry(),
	}), provider
}

func TestNewRouter_AlertRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/alerts"},
		{http.MethodGet, "/v1/alerts/active"},
		{http.MethodGet, "/v1/alerts/mine"},
		{http.MethodGet, "/v1/alerts/nearby"},
		{http.MethodGet, "/v1/alerts/01HZX"},
		{http.MethodPut, "/v1/alerts/01HZX/status"},
		{http.MethodPost, "/v1/alerts/01HZX/responses"},
		{http.MethodPost, "/v1/alerts/01HZX/notify-contacts"},
		{http.MethodGet, "/v1/users/u1/alerts"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, strings.NewReader("{}"))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			// 404 or 405 would mean the route is not mounted for this method.
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestNewRouter_RejectsForgedBearer(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/alerts/active", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/alerts-archive", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewRouter_RefreshIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/refresh", strings.NewReader("not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// Reaches the handler's body decoding without a bearer.
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNewRouter_MetricsMounted(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewRouter_AlertLimitAllowsFollowUpSOS(t *testing.T) {
	router, provider := newTestRouter(t)
	bearer, err := provider.Sign("u1", domain.RoleUser, "s1")
	require.NoError(t, err)

	// A malformed body is rejected by the handler before any store is used.
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/alerts", strings.NewReader("not json"))
		req.Header.Set("Authorization", "Bearer "+bearer)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < alertBurst; i++ {
		assert.Equal(t, http.StatusBadRequest, send().Code, "request %d", i+1)
	}
	rr := send()
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "3", rr.Header().Get("Retry-After"))
}
