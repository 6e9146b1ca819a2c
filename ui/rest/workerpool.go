package rest

import (
	"github.com/AzielCF/az-relay/pkg/msgworker"
	"github.com/AzielCF/az-relay/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// InitRestWorkerPool exposes real-time stats of the async webhook pool.
func InitRestWorkerPool(app fiber.Router, pool *msgworker.Pool) {
	app.Get("/worker-pool/stats", func(c *fiber.Ctx) error {
		if pool == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
				Status:  fiber.StatusServiceUnavailable,
				Code:    "WORKER_POOL_DISABLED",
				Message: "Async webhook worker pool not initialized",
			})
		}
		return c.JSON(utils.Success("Worker pool stats", pool.GetStats()))
	})
}
