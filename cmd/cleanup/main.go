// Command cleanup deletes stored narratives older than the retention period.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"tg_analytics/internal/config"
	"tg_analytics/internal/storage"
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

	days := flag.Int("days", cfg.RetentionDays, "delete narratives older than this many days")
	flag.Parse()

	if *days <= 0 {
		slog.Error("retention must be positive", "days", *days)
		os.Exit(1)
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		slog.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	cutoff := time.Now().UTC().Add(-time.Duration(*days) * 24 * time.Hour)
	n, err := store.DeleteNarrativesBefore(context.Background(), cutoff)
	if err != nil {
		slog.Error("delete narratives", "error", err)
		os.Exit(1)
	}
	slog.Info("deleted narratives", "count", n, "cutoff", cutoff.Format(time.RFC3339))
}
