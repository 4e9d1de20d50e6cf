package handlers

import (
	"github.com/gofiber/fiber/v2"

	"webar-publish-system/middleware"
	"webar-publish-system/services"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService) {
	app.Post("/auth/login", authService.Login)
	app.Post("/auth/logout", authService.Logout)
	app.Get("/auth/me", middleware.AuthRequired(authService), authService.Me)
}
