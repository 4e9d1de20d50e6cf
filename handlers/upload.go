package handlers

import (
	"github.com/gofiber/fiber/v2"

	"webar-publish-system/config"
	"webar-publish-system/middleware"
	"webar-publish-system/services"
)

func SetupUploadRoutes(app *fiber.App, uploadService *services.UploadService, authService *services.AuthService, cfg *config.Config) {
	// Sign/complete accept a user session or the generation job's secret.
	machineOrUser := middleware.UserOrJobSecret(authService, cfg.JobSecret)
	app.Post("/uploads/sign", machineOrUser, uploadService.SignUpload)
	app.Post("/uploads/complete", machineOrUser, uploadService.CompleteUpload)

	// The PUT is authenticated by its signature alone so browsers can
	// upload directly without holding the bearer token.
	app.Put("/uploads", uploadService.PutUpload)

	// Asset reads are gated by the read token in the query string.
	app.Get("/assets/:id", uploadService.GetAsset)
}
