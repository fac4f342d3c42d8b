package handlers

import (
	"github.com/aparaitech/lms-api/database"
	"github.com/gofiber/fiber/v2"
)

// HandleCheckHealth reports API and database liveness
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
