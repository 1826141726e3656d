// Package report ties the message source, the analytics core, the narrative
// generator and the PDF renderer together.
package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tg_analytics/internal/analytics"
	"tg_analytics/internal/cache"
	"tg_analytics/internal/metrics"
	"tg_analytics/internal/model"
	"tg_analytics/internal/narrative"
	"tg_analytics/internal/storage"
	"tg_analytics/internal/telegram"
)

// Timeouts and retention of cached artifacts.
const (
	AnalysisTimeout   = 300 * time.Second
	NarrativeTimeout  = 300 * time.Second
	NarrativeFreshFor = time.Hour
	NarrativesKept    = 5
	PDFCacheTTL       = time.Hour
)

// ErrNarrativeDisabled is returned when no narrative generator is configured.
var ErrNarrativeDisabled = errors.New("narrative generation is not configured")

// Source is the channel data provider.
type Source interface {
	ChannelInfo(ctx context.Context, ident string) (model.ChannelInfo, error)
	FetchMessages(ctx context.Context, ident string, limit int) ([]model.RawMessage, error)
	SearchChannels(ctx context.Context, query string) ([]model.ChannelRef, error)
}

// Renderer turns a report into a document.
type Renderer interface {
	Render(rep *model.Report, narrative string) ([]byte, error)
}

// Deps are the collaborators of a Service. Generator, Renderer, Cache and
// Metrics are optional.
type Deps struct {
	Source    Source
	Store     storage.Storage
	Generator narrative.Generator
	Renderer  Renderer
	Cache     cache.Cache
	Metrics   *metrics.Metrics
	Location  *time.Location
	Logger    *slog.Logger
}

// Service runs analyses on behalf of the HTTP API, the bot and the scheduler.
type Service struct {
	source   Source
	store    storage.Storage
	gen      narrative.Generator
	renderer Renderer
	cache    cache.Cache
	metrics  *metrics.Metrics
	loc      *time.Location
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Service.
func New(d Deps) *Service {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		source:   d.Source,
		store:    d.Store,
		gen:      d.Generator,
		renderer: d.Renderer,
		cache:    d.Cache,
		metrics:  d.Metrics,
		loc:      loc,
		log:      log,
		now:      time.Now,
	}
}

// Location is the zone reports are rendered in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Analyze fetches the channel history and builds its report. caller labels
// the metrics ("api", "bot", "scheduler"). A non-positive hoursBack means
// the default window.
func (s *Service) Analyze(ctx context.Context, caller, channel string, hoursBack int) (*model.Report, error) {
	start := time.Now()
	rep, err := s.analyze(ctx, channel, hoursBack)
	s.metrics.ObserveAnalysis(caller, time.Since(start), rep, err)

	switch {
	case err == nil:
		s.log.Info("channel analyzed",
			"channel", channel,
			"posts", rep.Summary.TotalPosts,
			"fallback", rep.AnalysisPeriod.UsedFallback,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	case errors.Is(err, model.ErrNoDataInPeriod):
		s.log.Info("no posts in period", "channel", channel, "hours_back", hoursBack)
	default:
		s.log.Warn("analyze channel", "channel", channel, "error", err)
	}
	return rep, err
}

func (s *Service) analyze(ctx context.Context, channel string, hoursBack int) (*model.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, AnalysisTimeout)
	defer cancel()

	info, err := s.source.ChannelInfo(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("channel info: %w", err)
	}
	msgs, err := s.source.FetchMessages(ctx, channel, telegram.MaxMessages)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	return analytics.Analyze(analytics.Input{
		Channel:   info,
		Messages:  msgs,
		HoursBack: hoursBack,
		Now:       s.now(),
		Location:  s.loc,
	})
}

// Subscribers returns channel metadata including the subscriber count.
func (s *Service) Subscribers(ctx context.Context, channel string) (model.ChannelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, AnalysisTimeout)
	defer cancel()
	return s.source.ChannelInfo(ctx, channel)
}

// FindChannels searches channels by title or username.
func (s *Service) FindChannels(ctx context.Context, query string) ([]model.ChannelRef, error) {
	ctx, cancel := context.WithTimeout(ctx, AnalysisTimeout)
	defer cancel()
	return s.source.SearchChannels(ctx, query)
}

// Narrative returns the AI narrative of a report. A narrative generated for
// the same channel and window within NarrativeFreshFor is reused and reported
// as cached.
func (s *Service) Narrative(ctx context.Context, rep *model.Report) (string, bool, error) {
	if s.gen == nil {
		return "", false, ErrNarrativeDisabled
	}
	channelID := rep.ChannelInfo.ID
	hoursBack := rep.AnalysisPeriod.HoursBack

	if s.store != nil && channelID != 0 {
		n, err := s.store.FreshNarrative(ctx, channelID, hoursBack, s.now().Add(-NarrativeFreshFor))
		switch {
		case err == nil:
			s.metrics.ObserveNarrative("cached")
			return n.Body, true, nil
		case !errors.Is(err, storage.ErrNotFound):
			s.log.Warn("load cached narrative", "channel_id", channelID, "error", err)
		}
	}

	req := narrative.Request{Report: rep, Settings: s.settings(ctx, channelID)}
	genCtx, cancel := context.WithTimeout(ctx, NarrativeTimeout)
	defer cancel()
	body, err := s.gen.Generate(genCtx, req)
	if err != nil {
		s.metrics.ObserveNarrative("error")
		return "", false, fmt.Errorf("generate narrative: %w", err)
	}
	s.metrics.ObserveNarrative("generated")

	if s.store != nil && channelID != 0 {
		n := &model.Narrative{ChannelID: channelID, HoursBack: hoursBack, Body: body, CreatedAt: s.now()}
		if err := s.store.SaveNarrative(ctx, n); err != nil {
			s.log.Warn("save narrative", "channel_id", channelID, "error", err)
		} else if err := s.store.KeepRecentNarratives(ctx, channelID, NarrativesKept); err != nil {
			s.log.Warn("prune channel narratives", "channel_id", channelID, "error", err)
		}
	}
	return body, false, nil
}

func (s *Service) settings(ctx context.Context, channelID int64) *model.AISettings {
	if s.store == nil || channelID == 0 {
		return nil
	}
	st, err := s.store.GetAISettings(ctx, channelID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("load ai settings", "channel_id", channelID, "error", err)
		}
		return nil
	}
	return st
}

// SaveSettings stores per-channel narrative hints.
func (s *Service) SaveSettings(ctx context.Context, st *model.AISettings) error {
	if st.ChannelID == 0 {
		return errors.New("channel_id is required")
	}
	if err := s.store.SaveAISettings(ctx, st); err != nil {
		return fmt.Errorf("save ai settings: %w", err)
	}
	return nil
}

// PDF renders the report document. Rendered bytes are cached for PDFCacheTTL
// keyed by the report and narrative content.
func (s *Service) PDF(ctx context.Context, rep *model.Report, narrativeText string) ([]byte, error) {
	if s.renderer == nil {
		return nil, errors.New("pdf renderer is not configured")
	}
	key, err := pdfKey(rep, narrativeText)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			s.metrics.ObservePDFCache(true)
			return data, nil
		case !errors.Is(err, cache.ErrMiss):
			s.log.Warn("pdf cache get", "error", err)
		}
		s.metrics.ObservePDFCache(false)
	}

	data, err := s.renderer.Render(rep, narrativeText)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data, PDFCacheTTL); err != nil {
			s.log.Warn("pdf cache set", "error", err)
		}
	}
	return data, nil
}

func pdfKey(rep *model.Report, narrativeText string) (string, error) {
	body, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	h := sha256.New()
	h.Write(body)
	h.Write([]byte{0})
	h.Write([]byte(narrativeText))
	return "pdf:" + hex.EncodeToString(h.Sum(nil)), nil
}

// PruneNarratives deletes narratives older than retention.
func (s *Service) PruneNarratives(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.store.DeleteNarrativesBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune narratives: %w", err)
	}
	s.metrics.ObservePruned(n)
	if n > 0 {
		s.log.Info("pruned narratives", "count", n, "retention", retention)
	}
	return n, nil
}
