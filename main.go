package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"webar-publish-system/config"
	"webar-publish-system/handlers"
	"webar-publish-system/models"
	"webar-publish-system/services"
	"webar-publish-system/utils"
	"webar-publish-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024, // 512MB, videos upload through this service
	})

	// Trim spaces around each configured origin
	origins := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	allowedOrigins := strings.Join(origins, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Job-Secret",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Asset{},
		&models.Experience{},
		&models.Pair{},
	); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	store, err := utils.NewR2Store(cfg)
	if err != nil {
		log.Fatal("failed to initialize R2 client: ", err)
	}
	signer := utils.NewSigner(cfg.SigningSecret)

	authService := services.NewAuthService(db, cfg)
	uploadService := services.NewUploadService(db, store, signer, cfg)
	experienceService := services.NewExperienceService(db, cfg)
	dispatcher := workers.NewTargetJobDispatcher(cfg)
	pairService := services.NewPairService(db, signer, cfg, dispatcher)
	resolverService := services.NewResolverService(db, signer, cfg)

	if err := authService.SeedAdmin(); err != nil {
		log.Fatal("failed to seed admin user: ", err)
	}
	authService.StartSessionSweeper()

	// Public routes go first: the experience group mounts the auth
	// middleware at "/", which guards everything registered after it.
	handlers.SetupPublicRoutes(app, resolverService, pairService, cfg)
	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupUploadRoutes(app, uploadService, authService, cfg)
	handlers.SetupExperienceRoutes(app, experienceService, pairService, authService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Token strategy: %s", cfg.TokenStrategy)
	log.Printf("✅ Dispatch mode: %s", cfg.DispatchMode)
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
