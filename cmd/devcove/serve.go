package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/devcove/internal/cache"
	"github.com/emilythestrangee/devcove/internal/database"
	"github.com/emilythestrangee/devcove/internal/events"
	"github.com/emilythestrangee/devcove/internal/server"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Server.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	deps := server.Deps{DB: db}
	if cfg.Redis.Address != "" {
		unread, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("unread cache disabled", "address", cfg.Redis.Address, "error", err)
		} else {
			defer unread.Close()
			deps.Unread = unread
		}
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafka(cfg.Kafka)
		defer publisher.Close()
		deps.Events = publisher
	}

	srv, err := server.New(cfg.Server, deps)
	if err != nil {
		return err
	}
	httpServer := srv.HTTPServer()
	go srv.SweepVisitors(ctx, time.Minute)

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
