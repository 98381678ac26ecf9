package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"github.com/arnold/pursue-api/internal/config"
	"github.com/arnold/pursue-api/internal/database"
	"github.com/arnold/pursue-api/internal/routes"
	"github.com/arnold/pursue-api/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := services.InitPush(cfg.FCMServiceAccount); err != nil {
		log.Printf("Push notifications disabled: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName: "pursue-api",
	})

	app.Use(logger.New())
	app.Use(cors.New())

	app.Static("/uploads", cfg.UploadsDir)

	routes.Setup(app)

	log.Printf("Listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
