package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NgigiN/prosperledger/internal/app"
	"github.com/NgigiN/prosperledger/internal/config"
	"github.com/NgigiN/prosperledger/internal/discord"
	"github.com/NgigiN/prosperledger/internal/logger"
	"github.com/NgigiN/prosperledger/internal/reminders"
	"github.com/NgigiN/prosperledger/internal/server"
	"github.com/NgigiN/prosperledger/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Msg("Starting ProsperLedger")

	db, err := storage.NewDatabase(cfg.DatabasePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize the database")
	}
	defer db.Close()

	ledgerApp := app.New(db, log)
	if err := ledgerApp.Start(context.Background()); err != nil {
		// The default config stays in memory; keep serving.
		log.Error().Err(err).Msg("Starting with default config")
	}
	defer ledgerApp.Close()

	if cfg.DiscordEnabled() {
		bot, err := discord.NewBot(cfg.DiscordBotToken, cfg.DiscordChannelId, db, ledgerApp, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize the discord bot")
		}
		if err := bot.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start bot")
		}
		defer bot.Stop()

		if cfg.ReminderSchedule != "" {
			sched := reminders.NewScheduler(log)
			if err := sched.AddJob(cfg.ReminderSchedule, reminders.NewDueJob(db, bot, log, nil)); err != nil {
				log.Fatal().Err(err).Msg("Failed to register reminder job")
			}
			sched.Start()
			defer sched.Stop()
		}
	}

	srv := server.New(server.Config{
		Port:           cfg.Port,
		Log:            log,
		App:            ledgerApp,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	// A failed listener ends the process along the same path as a signal,
	// so the deferred cleanup still runs.
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	if err := waitForShutdown(sc, serverErr); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
	}

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
}

// waitForShutdown blocks until a signal arrives or the server fails, and
// returns the server error if that came first.
func waitForShutdown(signals <-chan os.Signal, serverErr <-chan error) error {
	select {
	case <-signals:
		return nil
	case err := <-serverErr:
		return err
	}
}
