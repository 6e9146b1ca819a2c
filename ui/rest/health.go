package rest

import (
	"context"
	"strings"
	"time"

	"github.com/AzielCF/az-relay/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

// Pinger is anything health can probe: the database, valkey, the broker.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Health struct {
	Version   string
	StartedAt time.Time
	Checks    map[string]Pinger
}

func InitRestHealth(app fiber.Router, version string, startedAt time.Time, checks map[string]Pinger) Health {
	handler := Health{Version: version, StartedAt: startedAt, Checks: checks}
	app.Get("/health", handler.GetStatus)
	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	healthy := true
	checks := make(map[string]string, len(h.Checks))
	for name, p := range h.Checks {
		if err := p.Ping(ctx); err != nil {
			healthy = false
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	res := utils.Success("Health status retrieved", map[string]any{
		"version":    h.Version,
		"started_at": h.StartedAt,
		"uptime":     strings.TrimSpace(humanize.RelTime(h.StartedAt, time.Now(), "", "")),
		"checks":     checks,
	})
	if !healthy {
		res.Status = fiber.StatusServiceUnavailable
		res.Code = "DEGRADED"
		res.Success = false
		return c.Status(res.Status).JSON(res)
	}
	return c.JSON(res)
}
