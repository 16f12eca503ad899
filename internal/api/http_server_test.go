package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salonbook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPServer(t *testing.T, rl config.APIRateLimitConfig) (*HTTPServer, *testEnv) {
	t.Helper()
	env := newTestEnv(t, nil)
	env.cfg.API.HTTP.Path = "/api/bookings"
	env.cfg.API.RateLimit = rl
	return NewHTTPServer(env.cfg, env.handler, nil), env
}

func TestHTTPServer_Bookings(t *testing.T) {
	s, env := newTestHTTPServer(t, config.APIRateLimitConfig{})
	ts := httptest.NewServer(s.server.Handler)
	defer ts.Close()

	body := `{"client_name":"Anna","booking_date":"2024-06-01","booking_time":"10:00"}`
	resp, err := http.Post(ts.URL+"/api/bookings", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Post(ts.URL+"/api/bookings", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	assert.Equal(t, 1, env.count(t, "2024-06-01", "10:00"))
}

func TestHTTPServer_Preflight(t *testing.T) {
	s, _ := newTestHTTPServer(t, config.APIRateLimitConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/api/bookings", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestHTTPServer_MethodNotAllowed(t *testing.T) {
	s, _ := newTestHTTPServer(t, config.APIRateLimitConfig{})

	req := httptest.NewRequest(http.MethodDelete, "/api/bookings", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
}

func TestHTTPServer_Health(t *testing.T) {
	s, _ := newTestHTTPServer(t, config.APIRateLimitConfig{})

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPServer_RateLimit(t *testing.T) {
	s, _ := newTestHTTPServer(t, config.APIRateLimitConfig{RPS: 0.001, Burst: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, rec.Body.String())

	other := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestToProxyRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/bookings?source=web", strings.NewReader(`{"a":1}`))
	req.Header.Set("X-User-Id", "u-1")
	req.Header.Set("X-Request-Id", "req-7")

	proxy, err := toProxyRequest(req)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, proxy.HTTPMethod)
	assert.Equal(t, "/api/bookings", proxy.Path)
	assert.Equal(t, `{"a":1}`, proxy.Body)
	assert.Equal(t, "u-1", proxy.Headers["X-User-Id"])
	assert.Equal(t, "web", proxy.QueryStringParameters["source"])
	assert.Equal(t, "req-7", proxy.RequestContext.RequestID)
}

func TestToProxyRequestTooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(strings.Repeat("x", maxBodyBytes+1)))

	_, err := toProxyRequest(req)
	assert.Error(t, err)
}

func TestHTTPServer_Shutdown(t *testing.T) {
	s, _ := newTestHTTPServer(t, config.APIRateLimitConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:1234"
	assert.Equal(t, "192.168.1.5", clientKey(req))

	req.RemoteAddr = "garbage"
	assert.Equal(t, "unknown", clientKey(req))
}
