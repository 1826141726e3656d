package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"tg_analytics/internal/api"
	"tg_analytics/internal/bot"
	"tg_analytics/internal/cache"
	"tg_analytics/internal/config"
	"tg_analytics/internal/metrics"
	"tg_analytics/internal/narrative"
	"tg_analytics/internal/pdf"
	"tg_analytics/internal/report"
	"tg_analytics/internal/scheduler"
	"tg_analytics/internal/storage"
)

const cacheSweepInterval = 5 * time.Minute

var fontCandidates = pdf.SystemFonts

// app holds the fully constructed service. Nothing runs until serve.
type app struct {
	log     *slog.Logger
	mem     *cache.Memory
	srv     *api.Server
	bot     *bot.Bot
	sched   *scheduler.Scheduler
	closers []func() error
}

type appDeps struct {
	Config   *config.Config
	Source   report.Source
	Store    storage.Storage
	Registry prometheus.Registerer
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func newApp(d appDeps) (_ *app, err error) {
	cfg, log := d.Config, d.Logger
	a := &app{log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var c cache.Cache
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		c = cache.NewRedis(rdb, "tg_analytics:")
		log.Info("using redis cache", "addr", cfg.RedisAddr)
	} else {
		a.mem = cache.NewMemory()
		c = a.mem
	}

	gen, err := narrative.New(cfg)
	switch {
	case errors.Is(err, narrative.ErrNotConfigured):
		log.Warn("narrative generation disabled", "reason", err)
	case err != nil:
		return nil, err
	}

	font := cfg.PDFFontPath
	if font == "" {
		font = pdf.FindFont(fontCandidates)
		if font == "" {
			log.Warn("PDF_FONT_PATH not set and no system font found, non-Latin text in PDFs will not render")
		} else {
			log.Info("using system font for PDFs", "path", font)
		}
	}

	m := metrics.New(d.Registry)
	svc := report.New(report.Deps{
		Source:    d.Source,
		Store:     d.Store,
		Generator: gen,
		Renderer:  pdf.NewRenderer(font),
		Cache:     c,
		Metrics:   m,
		Location:  cfg.Location(),
		Logger:    log,
	})

	router := api.NewRouter(api.NewHandler(svc, log), m, d.Gatherer)
	a.srv = api.NewServer(cfg.Port, router, log)

	if cfg.TelegramBotToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN not set, bot and scheduled reports disabled")
		a.sched = scheduler.New(d.Store, svc, nil, cfg.Retention(), log)
		return a, nil
	}

	a.bot, err = bot.New(cfg.TelegramBotToken, svc, d.Store, cfg, log)
	if err != nil {
		return nil, err
	}
	a.sched = scheduler.New(d.Store, svc, a.bot, cfg.Retention(), log)
	return a, nil
}

// serve runs every component until ctx is cancelled or one of them fails.
func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.mem != nil {
		g.Go(func() error {
			a.mem.Run(ctx, cacheSweepInterval)
			return nil
		})
	}
	g.Go(func() error { return a.srv.Run(ctx) })

	if a.bot == nil {
		g.Go(func() error { return a.sched.RunRetention(ctx) })
		return g.Wait()
	}

	g.Go(func() error { return a.sched.Run(ctx) })
	g.Go(func() error {
		a.bot.Run(ctx)
		return nil
	})
	return g.Wait()
}

func (a *app) close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.log.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}
