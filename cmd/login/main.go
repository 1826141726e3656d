// Command login creates the MTProto user session used to read channel history.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tg_analytics/internal/config"
	"tg_analytics/internal/telegram"
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

	if dir := filepath.Dir(cfg.SessionFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			slog.Error("create session directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	zapLog, err := telegram.NewZapLogger("error")
	if err != nil {
		slog.Error("create mtproto logger", "error", err)
		os.Exit(1)
	}
	client, err := telegram.NewClient(cfg.TelegramAPIID, cfg.TelegramAPIHash, cfg.SessionFile, zapLog)
	if err != nil {
		slog.Error("create telegram client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = client.Run(ctx, func(ctx context.Context) error {
		me, err := telegram.Login(ctx, client, telegram.NewTerminalAuth(os.Stdin, os.Stdout))
		if err != nil {
			return err
		}
		slog.Info("logged in", "user", me.Username, "id", me.ID, "session", cfg.SessionFile)
		return nil
	})
	if err != nil {
		slog.Error("login", "error", err)
		os.Exit(1)
	}
}
