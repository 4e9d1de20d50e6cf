package handlers

import (
	"github.com/gofiber/fiber/v2"

	"webar-publish-system/config"
	"webar-publish-system/middleware"
	"webar-publish-system/services"
)

func SetupPublicRoutes(app *fiber.App, resolverService *services.ResolverService, pairService *services.PairService, cfg *config.Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 🔓 Viewer resolution by QR code, no auth, polled.
	app.Get("/p/:qr_id", resolverService.Resolve)

	// Generation job completion callback, machine channel only.
	app.Post("/jobs/complete", middleware.JobSecretRequired(cfg.JobSecret), pairService.CompleteJob)
}
