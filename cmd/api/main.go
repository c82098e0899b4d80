package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/octobees/gluten-finder/api/internal/cache"
	"github.com/octobees/gluten-finder/api/internal/config"
	"github.com/octobees/gluten-finder/api/internal/gemini"
	"github.com/octobees/gluten-finder/api/internal/handler"
	"github.com/octobees/gluten-finder/api/internal/logger"
	middlewarepkg "github.com/octobees/gluten-finder/api/internal/middleware"
	"github.com/octobees/gluten-finder/api/internal/places"
	"github.com/octobees/gluten-finder/api/internal/router"
	"github.com/octobees/gluten-finder/api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Each client bounds its own requests with its configured timeout.
	placesClient := places.NewClient(nil, places.Config{
		APIKey:    cfg.Places.APIKey,
		BaseURL:   cfg.Places.BaseURL,
		MaxPages:  cfg.Places.MaxPages,
		PageDelay: cfg.Places.PageDelay,
		Timeout:   cfg.Places.Timeout,
	}, zl)

	geminiClient, err := gemini.NewClient(ctx, nil, gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		BaseURL:         cfg.Gemini.BaseURL,
		Model:           cfg.Gemini.Model,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Timeout:         cfg.Gemini.Timeout,
	}, zl)
	if err != nil {
		zl.Fatal("failed to create gemini client", zap.Error(err))
	}

	opts := []service.DiscoveryOption{
		service.WithLogger(zl),
		service.WithClassifyRetries(cfg.ClassifyMaxRetries, cfg.ClassifyRetryBackoff),
	}
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			zl.Warn("redis unavailable, running without discovery cache", zap.Error(err))
		} else {
			defer rdb.Close()
			opts = append(opts, service.WithCache(cache.NewDiscoveryCache(rdb, cfg.CacheTTL)))
		}
	}

	discoveryService := service.NewDiscoveryService(placesClient, geminiClient, opts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(zl))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, router.Handlers{
		Discover: handler.NewDiscoverHandler(discoveryService, zl),
	})

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("port", cfg.Port))
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zl.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
