package main

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/example/koino/internal/config"
	"github.com/example/koino/internal/database"
	"github.com/example/koino/internal/middleware"
	"github.com/example/koino/internal/routes"
	"github.com/example/koino/internal/services"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := config.Load()

	db := database.Connect(cfg.DatabaseURL)

	chain := services.NewBlockchainService(cfg.ChainAPIURL, cfg.ChainAPIToken)
	files := services.NewFileService(cfg.AssetsDir, cfg.APIBaseURL)

	app := fiber.New(fiber.Config{
		AppName: "koino-server",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"message": message,
				"code":    code,
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestLogger(log))
	app.Use(middleware.RateLimit(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst))

	app.Static("/assets", cfg.AssetsDir)

	routes.Register(app, db, cfg, chain, files, log)

	if !chain.IsConnected() {
		log.Warn().Str("url", cfg.ChainAPIURL).Msg("chain gateway unreachable, token operations will fail")
	} else {
		log.Info().Str("url", cfg.ChainAPIURL).Msg("chain gateway connected")
	}

	log.Info().Str("port", cfg.AppPort).Msg("server starting")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func requestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("request")
		return err
	}
}
