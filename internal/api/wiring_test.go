package api

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.URL = "sqlite://" + filepath.Join(t.TempDir(), "salon.db")
	cfg.Database.AutoMigrate = true
	cfg.Locks.TTL = 5 * time.Second
	return cfg
}

func TestBuild_PooledWithRedisLocks(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Database.Pool = true
	cfg.Locks.Enabled = true
	cfg.Redis.Address = mr.Addr()

	logger := zerolog.Nop()
	h, cleanup := Build(context.Background(), cfg, &logger)
	defer cleanup()

	assert.IsType(t, &repository.FailoverSlotLocker{}, h.locker)

	body := `{"client_name":"Anna","booking_date":"2024-07-01","booking_time":"10:00"}`
	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: body})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: body})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// lock released after each request
	assert.Empty(t, mr.Keys())
}

func TestBuild_Defaults(t *testing.T) {
	cfg := testConfig(t)

	logger := zerolog.Nop()
	h, cleanup := Build(context.Background(), cfg, &logger)
	defer cleanup()

	assert.Nil(t, h.locker)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuild_MemoryLocksWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Locks.Enabled = true

	logger := zerolog.Nop()
	h, cleanup := Build(context.Background(), cfg, &logger)
	defer cleanup()

	assert.IsType(t, &repository.MemorySlotLocker{}, h.locker)
}
