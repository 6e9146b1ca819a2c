package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/AzielCF/az-relay/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	app := fiber.New()
	InitRestHealth(app.Group("/healthy"), "v1.0.0", time.Now().Add(-2*time.Hour), map[string]Pinger{"database": ok})
	InitRestHealth(app.Group("/degraded"), "v1.0.0", time.Now(), map[string]Pinger{"database": ok, "valkey": down})

	status, env := call(t, app, http.MethodGet, "/healthy/health", "")
	assert.Equal(t, http.StatusOK, status)
	var results map[string]any
	require.NoError(t, json.Unmarshal(env.Results, &results))
	assert.Equal(t, "2 hours", results["uptime"])
	assert.Equal(t, map[string]any{"database": "ok"}, results["checks"])

	status, env = call(t, app, http.MethodGet, "/degraded/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEGRADED", env.Code)
	require.NoError(t, json.Unmarshal(env.Results, &results))
	assert.Equal(t, "connection refused", results["checks"].(map[string]any)["valkey"])
}

func TestWorkerPoolStats(t *testing.T) {
	app := fiber.New()
	InitRestWorkerPool(app.Group("/off"), nil)

	pool := msgworker.NewPool(2, 10)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	InitRestWorkerPool(app.Group("/on"), pool)

	status, env := call(t, app, http.MethodGet, "/off/worker-pool/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "WORKER_POOL_DISABLED", env.Code)

	status, env = call(t, app, http.MethodGet, "/on/worker-pool/stats", "")
	assert.Equal(t, http.StatusOK, status)
	var stats msgworker.PoolStats
	require.NoError(t, json.Unmarshal(env.Results, &stats))
	assert.Equal(t, 2, stats.NumWorkers)
	assert.Len(t, stats.WorkerStats, 2)
}
