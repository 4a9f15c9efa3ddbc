package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/config"
	"github.com/diegoclair/shift-notify-bot/internal/database"
	"github.com/diegoclair/shift-notify-bot/internal/delivery"
	"github.com/diegoclair/shift-notify-bot/internal/domain/service"
	"github.com/diegoclair/shift-notify-bot/internal/handlers"
	"github.com/diegoclair/shift-notify-bot/internal/logger"
	"github.com/diegoclair/shift-notify-bot/migrator/sqlite"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config is not known yet
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Bot stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info().Msg("Running migrations...")
	if err := sqlite.Migrate(db.DB()); err != nil {
		return err
	}
	log.Info().Msg("Migrations completed successfully")

	transport, err := delivery.FromConfig(cfg, log)
	if err != nil {
		return err
	}

	svc := service.NewInstance(database.NewInstance(db), transport, log, service.Options{
		Location:                loc,
		DeliveryTimeout:         cfg.DeliveryTimeout,
		MaxConcurrentDeliveries: cfg.MaxConcurrentDeliveries,
		MaxLateness:             cfg.MaxLateness,
		IdleWait:                cfg.IdleWait,
		Retention:               cfg.Retention,
		PurgeCron:               cfg.PurgeCron,
	})

	svc.Scheduler.Start()
	if err := svc.Janitor.Start(); err != nil {
		return err
	}
	defer svc.Janitor.Stop()

	var slackHandler *handlers.SlackHandler
	if cfg.SlackSigningSecret != "" {
		slackHandler = handlers.New(svc.Shift, cfg.SlackSigningSecret, loc)
	} else {
		log.Warn().Msg("SLACK_SIGNING_SECRET not set, slash commands disabled")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(handlers.NewShiftHandler(svc.Shift, log), slackHandler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("driver", cfg.DeliveryDriver).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := svc.Scheduler.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Scheduler did not drain in-flight deliveries")
	}

	return nil
}
