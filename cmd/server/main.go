// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/peakform/peakform/internal/cache"
	"github.com/peakform/peakform/internal/database/postgres"
	"github.com/peakform/peakform/internal/pkg/log"
	platformconfig "github.com/peakform/peakform/internal/platform/config"
	"github.com/peakform/peakform/media"
	mediaHandlers "github.com/peakform/peakform/media/handlers"
	"github.com/peakform/peakform/media/provider"
	mediaRepository "github.com/peakform/peakform/media/repository"
	"github.com/peakform/peakform/media/review"
	mediaServices "github.com/peakform/peakform/media/services"
)

func main() {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		stdlog.Fatalf("Failed to load platform config: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			// If response already set by handler, don't override it
			if len(c.Response().Body()) > 0 {
				return nil
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.WebDomain,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
	}))

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database.Postgres)
	if err != nil {
		stdlog.Fatalf("Failed to create postgres client: %v", err)
	}

	blobProvider, err := provider.NewS3Provider(&cfg.Storage)
	if err != nil {
		stdlog.Fatalf("Failed to create blob provider: %v", err)
	}

	repo := mediaRepository.NewPostgresRepository(pgClient)
	roles := mediaRepository.NewPostgresRoleResolver(pgClient)

	// Review dispatch is optional; without it session media is processed
	// normally, just never reviewed.
	var dispatcher mediaServices.ReviewDispatcher
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		opts := []openai.Option{
			openai.WithToken(cfg.AI.APIKey),
			openai.WithModel(cfg.AI.Model),
		}
		if cfg.AI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.AI.BaseURL))
		}
		visionModel, err := openai.New(opts...)
		if err != nil {
			stdlog.Fatalf("Failed to create vision model client: %v", err)
		}
		dispatcher = review.NewDispatcher(visionModel, repo, cfg.AI.MaxConcurrent, cfg.AI.RequestTimeout)
	} else {
		log.Warn("AI review dispatch disabled (AI_ENABLED=%t, key set=%t)", cfg.AI.Enabled, cfg.AI.APIKey != "")
	}

	var sessions *cache.SessionCache
	if cfg.Cache.Enabled {
		sessions, err = cache.NewSessionCache(&cfg.Cache)
		if err != nil {
			stdlog.Fatalf("Failed to connect session cache: %v", err)
		}
	}

	mediaService := mediaServices.NewMediaService(blobProvider, repo, roles, dispatcher, &cfg.Storage)
	handler := mediaHandlers.NewMediaHandler(mediaService)

	media.RegisterRoutes(app, &media.MediaHandlers{MediaHandler: handler}, cfg, sessions)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := pgClient.HealthCheck(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("db unavailable")
		}
		return c.SendString("ok")
	})

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("starting media pipeline server on %s", addr)
		if err := app.Listen(addr); err != nil {
			stdlog.Fatalf("listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutdown requested")

	_ = app.Shutdown()
	_ = pgClient.Close()
	if sessions != nil {
		_ = sessions.Close()
	}
	log.Info("shutdown completed")
}
