// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/releaseboard/internal/app"
	"github.com/codr1/releaseboard/internal/config"
	"github.com/codr1/releaseboard/internal/db"
	"github.com/codr1/releaseboard/internal/logging"
	"github.com/codr1/releaseboard/internal/ratelimit"
	"github.com/codr1/releaseboard/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config/app.yaml", "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
	}

	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.File, cfg.IsDevelopment()); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	defer logging.CloseFile()

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	themes, err := app.NewTheme(ctx, cfg, database.Queries)
	if err != nil {
		return err
	}
	releases, err := app.NewReleaseService(ctx, cfg, database.Queries)
	if err != nil {
		return err
	}
	chat := app.NewAssistant(cfg, themes.Manager)

	limiter := ratelimit.New(&ratelimit.Config{
		ChatCooldown:      cfg.RateLimit.ChatCooldown,
		ChatMaxPerHour:    cfg.RateLimit.ChatHourlyMax,
		RefreshMaxPerHour: cfg.RateLimit.RefreshHourlyMax,
	})
	defer limiter.Close()

	if err := scheduler.Init(); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	svc, err := scheduler.ServiceInstance()
	if err != nil {
		return err
	}
	if err := scheduler.RegisterBuildStatusJob(svc, releases, cfg.Scheduler.RefreshCron, cfg.Scheduler.WatchedVersionIDs); err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	server := newServer(cfg, dependencies{
		database: database,
		themes:   themes,
		releases: releases,
		chat:     chat,
		limiter:  limiter,
	})

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	return g.Wait()
}
