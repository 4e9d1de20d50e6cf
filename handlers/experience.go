package handlers

import (
	"github.com/gofiber/fiber/v2"

	"webar-publish-system/middleware"
	"webar-publish-system/services"
)

func SetupExperienceRoutes(app *fiber.App, experienceService *services.ExperienceService, pairService *services.PairService, authService *services.AuthService) {
	// 🔐 All experience/pair CRUD requires an authenticated admin.
	secured := app.Group("/", middleware.AuthRequired(authService))

	secured.Get("/experiences", experienceService.ListExperiences)
	secured.Post("/experiences", experienceService.CreateExperience)
	secured.Get("/experiences/:id", experienceService.GetExperience)
	secured.Put("/experiences/:id", experienceService.UpdateExperience)
	secured.Delete("/experiences/:id", experienceService.DeleteExperience)

	secured.Get("/experiences/:id/pairs", pairService.ListPairs)
	secured.Post("/experiences/:id/pairs", pairService.CreatePair)
	secured.Put("/pairs/:id", pairService.UpdatePair)
	secured.Delete("/pairs/:id", pairService.DeletePair)
	secured.Post("/pairs/:id/retry", pairService.RetryPair)
}
