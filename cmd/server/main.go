package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gotd/td/telegram"
	"github.com/prometheus/client_golang/prometheus"

	"tg_analytics/internal/config"
	"tg_analytics/internal/storage"
	tgsource "tg_analytics/internal/telegram"
)

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		slog.Error("load env files", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	zapLog, err := tgsource.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Error("create mtproto logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = zapLog.Sync() }()

	client, err := tgsource.NewClient(cfg.TelegramAPIID, cfg.TelegramAPIHash, cfg.SessionFile, zapLog)
	if err != nil {
		log.Error("create telegram client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting telegram analytics", "port", cfg.Port, "timezone", cfg.Location().String())

	err = client.Run(ctx, func(ctx context.Context) error {
		return run(ctx, cfg, client, store, log)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service stopped", "error", err)
		os.Exit(1)
	}

	log.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, client *telegram.Client, store storage.Storage, log *slog.Logger) error {
	if err := tgsource.EnsureAuthorized(ctx, client); err != nil {
		log.Error("telegram session is not authorized, run cmd/login first", "session", cfg.SessionFile)
		return err
	}

	a, err := newApp(appDeps{
		Config:   cfg,
		Source:   tgsource.NewSource(client.API(), log),
		Store:    store,
		Registry: prometheus.DefaultRegisterer,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer a.close()

	return a.serve(ctx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
