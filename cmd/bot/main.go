package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicestats/internal/config"
	"voicestats/internal/database"
	"voicestats/internal/discord"
	"voicestats/internal/telemetry"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("failed to initialize database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	repository := database.NewRepository(db, cfg.AFKChannelID)

	telemetry.Init()
	var metrics *telemetry.Server
	if cfg.MetricsAddr != "" {
		metrics = telemetry.NewServer(cfg.MetricsAddr, db)
		metrics.Start()
	}

	bot, err := discord.New(cfg, repository)
	if err != nil {
		slog.Error("failed to create Discord bot", slog.Any("error", err))
		os.Exit(1)
	}

	if err := bot.Start(); err != nil {
		slog.Error("failed to start bot", slog.Any("error", err))
		os.Exit(1)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	slog.Info("shutting down")
	if err := bot.Stop(); err != nil {
		slog.Error("failed to stop bot", slog.Any("error", err))
	}
	if metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.Shutdown(ctx); err != nil {
			slog.Error("failed to stop metrics server", slog.Any("error", err))
		}
	}
}
