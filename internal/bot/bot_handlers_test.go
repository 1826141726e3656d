package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"tg_analytics/internal/config"
	"tg_analytics/internal/model"
	"tg_analytics/internal/report"
	"tg_analytics/internal/storage"
)

// --- mocks ---

type sentMsg struct {
	ChatID   int64
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

type sentDoc struct {
	ChatID int64
	Name   string
	Bytes  []byte
}

type mockAPI struct {
	mu   sync.Mutex
	sent []sentMsg
	docs []sentDoc
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		s := sentMsg{ChatID: v.ChatID, Text: v.Text}
		if kb, ok := v.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			s.Keyboard = &kb
		}
		m.sent = append(m.sent, s)
	case tgbotapi.DocumentConfig:
		fb, _ := v.File.(tgbotapi.FileBytes)
		m.docs = append(m.docs, sentDoc{ChatID: v.ChatID, Name: fb.Name, Bytes: fb.Bytes})
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) last() sentMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMsg{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockAPI) lastText() string {
	return m.last().Text
}

func (m *mockAPI) allTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Text
	}
	return out
}

func (m *mockAPI) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.docs = nil
}

type mockAnalyzer struct {
	report       *model.Report
	err          error
	narrative    string
	cached       bool
	narrativeErr error
	gotChannel   string
	gotHours     int
	pdfNarrative string
}

func (m *mockAnalyzer) Analyze(_ context.Context, _, channel string, hours int) (*model.Report, error) {
	m.gotChannel, m.gotHours = channel, hours
	return m.report, m.err
}

func (m *mockAnalyzer) Narrative(_ context.Context, _ *model.Report) (string, bool, error) {
	return m.narrative, m.cached, m.narrativeErr
}

func (m *mockAnalyzer) PDF(_ context.Context, _ *model.Report, narrative string) ([]byte, error) {
	m.pdfNarrative = narrative
	return []byte("%PDF"), nil
}

func (m *mockAnalyzer) Location() *time.Location { return time.UTC }

// --- helpers ---

func sampleReport() *model.Report {
	return &model.Report{
		ChannelInfo:    model.ChannelInfo{ID: 1, Title: "Go News", Username: "gonews", Subscribers: 1000},
		AnalysisPeriod: model.AnalysisPeriod{HoursBack: 24, StartTime: "09.03.2025 12:00", EndTime: "10.03.2025 12:00"},
		Summary: model.Summary{
			TotalPosts: 2, TotalViews: 400, AvgViewsPerPost: 200,
			EngagementRate: model.EngagementRate{ERViews: 2.5, ERSubscribers: 1, Quality: model.ERQualityNormal},
		},
		TopPosts: []model.TopPost{
			{ID: 3, Views: 300, ContentType: "Text", TextPreview: "Go 1.24 released"},
		},
		TimeAnalysis:    model.TimeAnalysis{BestHours: []model.BestHour{{Hour: 9, AvgViews: 300}}},
		Recommendations: []string{"🔥 Great engagement rate! Keep it up"},
	}
}

func newTestBot(t *testing.T, svc *mockAnalyzer) (*Bot, *mockAPI, *storage.SQLite) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if svc == nil {
		svc = &mockAnalyzer{report: sampleReport()}
	}
	api := &mockAPI{}
	b := &Bot{
		api:   api,
		svc:   svc,
		store: store,
		cfg:   &config.Config{},
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, api, store
}

func seedTracked(t *testing.T, store *storage.SQLite, chatID int64, channel string) *model.TrackedChannel {
	t.Helper()
	tc := &model.TrackedChannel{ChatID: chatID, Channel: channel, HoursBack: 24, IntervalMinutes: 1440, IsActive: true}
	if err := store.CreateTracked(context.Background(), tc); err != nil {
		t.Fatalf("seed tracked: %v", err)
	}
	return tc
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("reply missing %q, got:\n%s", want, got)
	}
}

// --- handler tests ---

func TestHandleStart(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	b.handleStart(100)
	requireContains(t, api.lastText(), "Welcome to Telegram Channel Analytics")
}

func TestHandleHelp(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	b.handleHelp(100)
	requireContains(t, api.lastText(), "/analyze")
	requireContains(t, api.lastText(), "/track")
}

func TestHandleAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("empty args", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleAnalyze(ctx, 100, "")
		requireContains(t, api.lastText(), "Usage: /analyze")
	})

	t.Run("success with buttons", func(t *testing.T) {
		svc := &mockAnalyzer{report: sampleReport()}
		b, api, _ := newTestBot(t, svc)
		b.handleAnalyze(ctx, 100, "@gonews 48")

		if diff := cmp.Diff("@gonews", svc.gotChannel); diff != "" {
			t.Errorf("channel (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(48, svc.gotHours); diff != "" {
			t.Errorf("hours (-want +got):\n%s", diff)
		}
		last := api.last()
		requireContains(t, last.Text, "📊 Go News (@gonews)")
		if last.Keyboard == nil {
			t.Fatal("expected inline keyboard")
		}
		row := last.Keyboard.InlineKeyboard[0]
		if diff := cmp.Diff("ai:@gonews 48", *row[0].CallbackData); diff != "" {
			t.Errorf("ai callback (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff("pdf:@gonews 48", *row[1].CallbackData); diff != "" {
			t.Errorf("pdf callback (-want +got):\n%s", diff)
		}
	})

	t.Run("long channel drops buttons", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleAnalyze(ctx, 100, "https://t.me/"+strings.Repeat("a", 60))
		if api.last().Keyboard != nil {
			t.Error("expected no keyboard for oversized callback data")
		}
	})

	t.Run("not found", func(t *testing.T) {
		b, api, _ := newTestBot(t, &mockAnalyzer{err: model.ErrNotFound})
		b.handleAnalyze(ctx, 100, "nobody")
		requireContains(t, api.lastText(), "Channel not found")
	})

	t.Run("no data", func(t *testing.T) {
		last := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		svc := &mockAnalyzer{err: &model.NoDataError{
			Channel:       model.ChannelInfo{Title: "Quiet"},
			Period:        model.Period{HoursBack: 24},
			LastMessageAt: &last,
		}}
		b, api, _ := newTestBot(t, svc)
		b.handleAnalyze(ctx, 100, "quiet")
		requireContains(t, api.lastText(), "No posts in Quiet during the last 24 hours")
		requireContains(t, api.lastText(), "2025-03-01 08:00")
	})
}

func TestHandleAI(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh", func(t *testing.T) {
		b, api, _ := newTestBot(t, &mockAnalyzer{report: sampleReport(), narrative: "Looks good."})
		b.handleAI(ctx, 100, "gonews")
		if diff := cmp.Diff("Looks good.", api.lastText()); diff != "" {
			t.Errorf("reply (-want +got):\n%s", diff)
		}
	})

	t.Run("cached", func(t *testing.T) {
		b, api, _ := newTestBot(t, &mockAnalyzer{report: sampleReport(), narrative: "Old.", cached: true})
		b.handleAI(ctx, 100, "gonews")
		requireContains(t, api.lastText(), "cached")
	})

	t.Run("disabled", func(t *testing.T) {
		b, api, _ := newTestBot(t, &mockAnalyzer{report: sampleReport(), narrativeErr: report.ErrNarrativeDisabled})
		b.handleAI(ctx, 100, "gonews")
		requireContains(t, api.lastText(), "not configured")
	})
}

func TestHandlePDF(t *testing.T) {
	ctx := context.Background()

	t.Run("with narrative", func(t *testing.T) {
		svc := &mockAnalyzer{report: sampleReport(), narrative: "Summary."}
		b, api, _ := newTestBot(t, svc)
		b.handlePDF(ctx, 100, "gonews")

		if diff := cmp.Diff([]sentDoc{{ChatID: 100, Name: "Go_News_report.pdf", Bytes: []byte("%PDF")}}, api.docs); diff != "" {
			t.Errorf("documents (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff("Summary.", svc.pdfNarrative); diff != "" {
			t.Errorf("narrative (-want +got):\n%s", diff)
		}
	})

	t.Run("narrative unavailable", func(t *testing.T) {
		svc := &mockAnalyzer{report: sampleReport(), narrativeErr: report.ErrNarrativeDisabled}
		b, api, _ := newTestBot(t, svc)
		b.handlePDF(ctx, 100, "gonews")

		if diff := cmp.Diff(1, len(api.docs)); diff != "" {
			t.Errorf("document count (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff("", svc.pdfNarrative); diff != "" {
			t.Errorf("narrative (-want +got):\n%s", diff)
		}
	})
}

func TestHandleTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("empty args", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleTrack(ctx, 100, "")
		requireContains(t, api.lastText(), "Usage: /track")
	})

	t.Run("success", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		b.handleTrack(ctx, 100, "gonews 72")
		last := api.last()
		requireContains(t, last.Text, "Tracking #1 gonews (last 72 h, every 1 d)")
		if last.Keyboard == nil {
			t.Fatal("expected inline keyboard")
		}
		if diff := cmp.Diff("untrack_confirm:1", *last.Keyboard.InlineKeyboard[0][1].CallbackData); diff != "" {
			t.Errorf("stop callback (-want +got):\n%s", diff)
		}

		list, _ := store.ListTracked(ctx, 100)
		if diff := cmp.Diff(1, len(list)); diff != "" {
			t.Fatalf("tracked count (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(72, list[0].HoursBack); diff != "" {
			t.Errorf("hours back (-want +got):\n%s", diff)
		}
	})
}

func TestHandleList(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleList(ctx, 100)
		requireContains(t, api.lastText(), "not tracking any channels")
	})

	t.Run("with channels", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		seedTracked(t, store, 100, "gonews")
		paused := seedTracked(t, store, 100, "rustnews")
		paused.IsActive = false
		_ = store.UpdateTracked(ctx, paused)
		seedTracked(t, store, 200, "someone_else")

		b.handleList(ctx, 100)
		reply := api.lastText()
		requireContains(t, reply, "#1 gonews")
		requireContains(t, reply, "#2 rustnews")
		requireContains(t, reply, "[paused]")
		if strings.Contains(reply, "someone_else") {
			t.Errorf("list leaks another chat's channel:\n%s", reply)
		}
	})
}

func TestHandleUntrack(t *testing.T) {
	ctx := context.Background()

	t.Run("bad args", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleUntrack(ctx, 100, "abc")
		requireContains(t, api.lastText(), "Usage: /untrack")
	})

	t.Run("not found", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleUntrack(ctx, 100, "999")
		requireContains(t, api.lastText(), "not found")
	})

	t.Run("wrong chat", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		seedTracked(t, store, 200, "other")
		b.handleUntrack(ctx, 100, "1")
		requireContains(t, api.lastText(), "not found")
	})

	t.Run("success", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		seedTracked(t, store, 100, "gonews")
		b.handleUntrack(ctx, 100, "1")
		requireContains(t, api.lastText(), "Stopped tracking #1 gonews")

		list, _ := store.ListTracked(ctx, 100)
		if diff := cmp.Diff(0, len(list)); diff != "" {
			t.Errorf("tracked should be empty (-want +got):\n%s", diff)
		}
	})
}

func TestHandleInterval(t *testing.T) {
	ctx := context.Background()

	t.Run("bad args", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleInterval(ctx, 100, "1")
		if api.lastText() == "" {
			t.Fatal("expected reply")
		}
	})

	t.Run("not found", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleInterval(ctx, 100, "999 60")
		requireContains(t, api.lastText(), "not found")
	})

	t.Run("success", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		seedTracked(t, store, 100, "gonews")
		b.handleInterval(ctx, 100, "1 180")
		requireContains(t, api.lastText(), "every 3 h")

		tc, _ := store.GetTracked(ctx, 1)
		if diff := cmp.Diff(180, tc.IntervalMinutes); diff != "" {
			t.Errorf("interval (-want +got):\n%s", diff)
		}
	})
}

func TestHandlePauseResume(t *testing.T) {
	ctx := context.Background()

	t.Run("bad args", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handlePause(ctx, 100, "")
		requireContains(t, api.lastText(), "Usage: /pause")
		b.handleResume(ctx, 100, "")
		requireContains(t, api.lastText(), "Usage: /resume")
	})

	t.Run("pause then resume", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		seedTracked(t, store, 100, "gonews")

		b.handlePause(ctx, 100, "1")
		requireContains(t, api.lastText(), "paused")
		tc, _ := store.GetTracked(ctx, 1)
		if diff := cmp.Diff(false, tc.IsActive); diff != "" {
			t.Errorf("IsActive after pause (-want +got):\n%s", diff)
		}

		b.handleResume(ctx, 100, "1")
		requireContains(t, api.lastText(), "resumed")
		tc, _ = store.GetTracked(ctx, 1)
		if diff := cmp.Diff(true, tc.IsActive); diff != "" {
			t.Errorf("IsActive after resume (-want +got):\n%s", diff)
		}
	})
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()

	makeMsg := func(cmd, args string) *tgbotapi.Message {
		text := "/" + cmd
		if args != "" {
			text += " " + args
		}
		return &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: 100},
			Text: text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len("/" + cmd)},
			},
		}
	}

	b, api, _ := newTestBot(t, nil)
	cmds := []struct {
		cmd      string
		args     string
		contains string
	}{
		{"start", "", "Welcome"},
		{"help", "", "/analyze"},
		{"analyze", "gonews", "Go News"},
		{"list", "", "not tracking"},
		{"track", "gonews", "Tracking #1"},
		{"interval", "1 60", "every 1 h"},
		{"pause", "1", "paused"},
		{"resume", "1", "resumed"},
		{"untrack", "1", "Stopped tracking"},
		{"unknown_cmd", "", "Unknown command"},
	}
	for _, tc := range cmds {
		api.reset()
		b.handleCommand(ctx, makeMsg(tc.cmd, tc.args))
		requireContains(t, api.lastText(), tc.contains)
	}
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()

	cb := func(data string) *tgbotapi.CallbackQuery {
		return &tgbotapi.CallbackQuery{
			ID:      "cb",
			Data:    data,
			From:    &tgbotapi.User{ID: 1},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		}
	}

	t.Run("invalid data format", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleCallback(ctx, cb("nocolon"))
		if diff := cmp.Diff(0, len(api.allTexts())); diff != "" {
			t.Errorf("expected no text messages (-want +got):\n%s", diff)
		}
	})

	t.Run("ai callback", func(t *testing.T) {
		svc := &mockAnalyzer{report: sampleReport(), narrative: "AI says hi"}
		b, api, _ := newTestBot(t, svc)
		b.handleCallback(ctx, cb("ai:gonews 48"))
		requireContains(t, api.lastText(), "AI says hi")
		if diff := cmp.Diff(48, svc.gotHours); diff != "" {
			t.Errorf("hours (-want +got):\n%s", diff)
		}
	})

	t.Run("pdf callback", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleCallback(ctx, cb("pdf:gonews 24"))
		if diff := cmp.Diff(1, len(api.docs)); diff != "" {
			t.Errorf("documents (-want +got):\n%s", diff)
		}
	})

	t.Run("untrack confirm", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		seedTracked(t, store, 100, "gonews")
		b.handleCallback(ctx, cb("untrack_confirm:1"))
		requireContains(t, api.lastText(), "Stop tracking #1 gonews?")
		if api.last().Keyboard == nil {
			t.Error("expected confirmation keyboard")
		}
	})

	t.Run("untrack", func(t *testing.T) {
		b, api, store := newTestBot(t, nil)
		seedTracked(t, store, 100, "gonews")
		b.handleCallback(ctx, cb("untrack:1"))
		requireContains(t, api.lastText(), "Stopped tracking")
	})
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	command := func(from *tgbotapi.User) tgbotapi.Update {
		return tgbotapi.Update{Message: &tgbotapi.Message{
			From:     from,
			Chat:     &tgbotapi.Chat{ID: 100},
			Text:     "/start",
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/start")}},
		}}
	}

	tests := []struct {
		name    string
		allowed []int64
		update  tgbotapi.Update
		want    []string
	}{
		{name: "command from user", update: command(&tgbotapi.User{ID: 1}), want: []string{"Welcome"}},
		{name: "command without sender", update: command(nil), want: nil},
		{name: "user not allowed", allowed: []int64{2}, update: command(&tgbotapi.User{ID: 1}), want: []string{"Access denied."}},
		{name: "callback without sender", update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID: "cb", Data: "ai:gonews 24", Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		}}, want: nil},
		{name: "plain text", update: tgbotapi.Update{Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 100}, Text: "hello",
		}}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, api, _ := newTestBot(t, nil)
			b.cfg = &config.Config{AllowedUsers: tt.allowed}

			b.dispatch(ctx, tt.update)
			b.wg.Wait()

			got := api.allTexts()
			if diff := cmp.Diff(len(tt.want), len(got)); diff != "" {
				t.Fatalf("message count (-want +got):\n%s\n%v", diff, got)
			}
			for i, want := range tt.want {
				requireContains(t, got[i], want)
			}
		})
	}
}
