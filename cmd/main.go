package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/olekros/zvistka/internal/api"
	"github.com/olekros/zvistka/internal/archive"
	"github.com/olekros/zvistka/internal/cache"
	"github.com/olekros/zvistka/internal/config"
	"github.com/olekros/zvistka/internal/fetch"
	"github.com/olekros/zvistka/internal/logger"
	"github.com/olekros/zvistka/internal/middleware"
	"github.com/olekros/zvistka/internal/news"
	"github.com/olekros/zvistka/internal/offers"
	"github.com/olekros/zvistka/internal/scrape"
	"github.com/olekros/zvistka/internal/sources"
	"github.com/olekros/zvistka/internal/store"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: "stdout",
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Msg("Starting application...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoTimeout)
	articleStore, err := store.NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDB, cfg.MongoTimeout)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		log.Info().Msg("Closing MongoDB connection...")
		if err := articleStore.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error closing MongoDB connection")
		}
	}()

	var freshness cache.Freshness
	freshness, err = cache.NewRedisClient(cfg)
	if err != nil {
		// Redis only carries freshness markers, a cold start without it
		// just means every first request walks the source.
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory freshness markers")
		freshness = cache.NewMockFreshness()
	}
	defer func() {
		if err := freshness.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing freshness store")
		}
	}()

	clients := &fetch.Selector{
		HTTP:    fetch.NewHTTPClient(cfg.UserAgent, cfg.FetchTimeout),
		Browser: fetch.NewBrowserClient(cfg.UserAgent, cfg.FetchTimeout, cfg.BrowserSettle),
	}

	// Epravda first: its host is a subdomain of pravda.com.ua, so the more
	// specific adapter has to win the match.
	registry := sources.NewRegistry(
		sources.NewEpravda(),
		sources.NewPravda(),
		sources.NewPoliteka(),
	)

	var archiver scrape.Archiver
	if cfg.ArchiveEnabled() {
		s3Archiver, err := archive.NewS3Archiver(context.Background(), cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Page archiver unavailable, continuing without it")
		} else {
			archiver = s3Archiver
		}
	}

	walker := scrape.NewWalker(registry, clients, archiver, scrape.Config{
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		MaxConcurrency: cfg.MaxConcurrency,
	})

	newsService := news.NewService(walker, articleStore, freshness, cfg.CacheTTL, cfg.WalkTimeout)
	offersClient := offers.NewClient(cfg.UserAgent, cfg.FetchTimeout, articleStore, cfg.MaxConcurrency)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.WalkTimeout + cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	api.SetupRoutes(app, api.NewHandlers(newsService, offersClient, freshness), cfg)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
