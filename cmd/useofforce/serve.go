package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"use_of_force/internal/infra/metrics"
	"use_of_force/internal/infra/telegram"

	"github.com/spf13/cobra"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reminder scheduler and the metrics/health server until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApplication(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		if serveMigrate {
			if err := migrate(a); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := a.scheduler.Start(); err != nil {
			return err
		}

		server := metrics.NewServer(cfg.MetricsPort, metrics.Router(metrics.NewRegistry(), a.store.Ping, log))
		go func() {
			log.WithField("port", cfg.MetricsPort).Info("Metrics and health server listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server stopped")
			}
		}()

		if a.bot != nil {
			telegram.RegisterBotCommands(a.bot, cfg.AlertTelegramChatID, a.scheduler, a.store, cfg.RunTimeout, log)
			go a.bot.Start()
			log.Info("Telegram ops bot started")
		}

		log.Info("Application setup complete, waiting for reminders to fall due")
		<-ctx.Done()

		log.Info("Shutting down application...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Metrics server did not shut down cleanly")
		}
		if a.bot != nil {
			a.bot.Stop()
		}
		a.scheduler.Stop()
		log.Info("Application shut down gracefully.")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply schema migrations before starting")
	rootCmd.AddCommand(serveCmd)
}
