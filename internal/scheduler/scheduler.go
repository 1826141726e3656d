// Package scheduler delivers tracked channel reports and prunes old narratives.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tg_analytics/internal/bot"
	"tg_analytics/internal/model"
	"tg_analytics/internal/storage"
)

// RetentionSchedule runs the narrative cleanup daily at 03:00.
const RetentionSchedule = "0 3 * * *"

const jobTimeout = 10 * time.Minute

// Sender is the interface for sending Telegram messages.
type Sender interface {
	SendMessage(chatID int64, text string)
}

// Analyzer runs analyses and prunes narrative history.
type Analyzer interface {
	Analyze(ctx context.Context, caller, channel string, hoursBack int) (*model.Report, error)
	PruneNarratives(ctx context.Context, retention time.Duration) (int64, error)
	Location() *time.Location
}

// Scheduler periodically reports on due tracked channels.
type Scheduler struct {
	store     storage.Storage
	svc       Analyzer
	sender    Sender
	log       *slog.Logger
	tick      time.Duration
	pause     time.Duration
	retention time.Duration
	now       func() time.Time
}

// New creates a Scheduler. A zero retention disables the cleanup job.
func New(store storage.Storage, svc Analyzer, sender Sender, retention time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		svc:       svc,
		sender:    sender,
		log:       log,
		tick:      1 * time.Minute,
		pause:     50 * time.Millisecond,
		retention: retention,
		now:       time.Now,
	}
}

// SetTickInterval overrides the default 1-minute check interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the report loop and the retention job, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	c, err := s.startRetention(ctx)
	if err != nil {
		return err
	}
	defer func() { <-c.Stop().Done() }()

	s.checkAll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.checkAll(ctx)
		}
	}
}

// RunRetention runs only the retention job, for deployments without a bot.
func (s *Scheduler) RunRetention(ctx context.Context) error {
	c, err := s.startRetention(ctx)
	if err != nil {
		return err
	}
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) startRetention(ctx context.Context) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(s.svc.Location()))
	if s.retention > 0 {
		if _, err := c.AddFunc(RetentionSchedule, func() { s.prune(ctx) }); err != nil {
			return nil, fmt.Errorf("schedule retention job: %w", err)
		}
		s.log.Info("narrative retention enabled", "schedule", RetentionSchedule, "retention", s.retention)
	}
	c.Start()
	return c, nil
}

func (s *Scheduler) prune(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	if _, err := s.svc.PruneNarratives(ctx, s.retention); err != nil {
		s.log.Error("retention job", "error", err)
	}
}

func (s *Scheduler) checkAll(ctx context.Context) {
	due, err := s.store.ListDueTracked(ctx)
	if err != nil {
		s.log.Error("list due tracked channels", "error", err)
		return
	}

	for _, tc := range due {
		if ctx.Err() != nil {
			return
		}
		if err := s.report(ctx, tc); errors.Is(err, model.ErrRateLimited) {
			// Every further call would hit the same flood wait.
			s.log.Warn("rate limited, postponing remaining reports", "error", err)
			return
		}
	}
}

func (s *Scheduler) report(ctx context.Context, tc model.TrackedChannel) error {
	s.log.Debug("reporting tracked channel", "tracked_id", tc.ID, "channel", tc.Channel)

	rep, err := s.svc.Analyze(ctx, "scheduler", tc.Channel, tc.HoursBack)
	var noData *model.NoDataError
	switch {
	case errors.As(err, &noData):
		s.sender.SendMessage(tc.ChatID, digestHeader(tc)+bot.FormatNoData(noData, s.svc.Location()))
	case errors.Is(err, model.ErrRateLimited):
		return err
	case err != nil:
		s.log.Error("analyze tracked channel", "tracked_id", tc.ID, "channel", tc.Channel, "error", err)
	default:
		s.sender.SendMessage(tc.ChatID, digestHeader(tc)+bot.FormatReport(rep))
		s.log.Info("sent report", "tracked_id", tc.ID, "channel", tc.Channel, "posts", rep.Summary.TotalPosts)
	}

	// Rate limit: ~20 messages/sec max for Telegram
	time.Sleep(s.pause)

	s.updateLastCheck(ctx, &tc)
	return nil
}

func digestHeader(tc model.TrackedChannel) string {
	return fmt.Sprintf("Scheduled report #%d\n\n", tc.ID)
}

func (s *Scheduler) updateLastCheck(ctx context.Context, tc *model.TrackedChannel) {
	now := s.now().UTC()
	tc.LastCheckAt = &now
	if err := s.store.UpdateTracked(ctx, tc); err != nil {
		s.log.Error("update last check", "tracked_id", tc.ID, "error", err)
	}
}
