package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tg_analytics/internal/analytics"
	"tg_analytics/internal/model"
)

func TestParseChannelArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    ChannelArgs
		wantErr bool
	}{
		{name: "channel only", args: "durov", want: ChannelArgs{Channel: "durov", HoursBack: 24}},
		{name: "with hours", args: "@durov 72", want: ChannelArgs{Channel: "@durov", HoursBack: 72}},
		{name: "link", args: "https://t.me/durov 6", want: ChannelArgs{Channel: "https://t.me/durov", HoursBack: 6}},
		{name: "numeric id", args: "-1001234567890", want: ChannelArgs{Channel: "-1001234567890", HoursBack: 24}},
		{name: "invalid hours", args: "durov abc", want: ChannelArgs{Channel: "durov", HoursBack: 24}},
		{name: "zero hours", args: "durov 0", want: ChannelArgs{Channel: "durov", HoursBack: 24}},
		{name: "huge hours capped", args: "durov 10000000", want: ChannelArgs{Channel: "durov", HoursBack: analytics.MaxHoursBack}},
		{name: "empty", args: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChannelArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChannelArgsRoundTrip(t *testing.T) {
	in := ChannelArgs{Channel: "durov", HoursBack: 48}
	got, err := ParseChannelArgs(in.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIDArg(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    int64
		wantErr bool
	}{
		{name: "valid", args: "42", want: 42},
		{name: "with whitespace", args: "  7  ", want: 7},
		{name: "empty", args: "", wantErr: true},
		{name: "not a number", args: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDArg(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseIntervalArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		wantID   int64
		wantMins int
		wantErr  bool
	}{
		{name: "valid", args: "1 60", wantID: 1, wantMins: 60},
		{name: "min boundary", args: "2 10", wantID: 2, wantMins: 10},
		{name: "max boundary", args: "3 10080", wantID: 3, wantMins: 10080},
		{name: "too low", args: "1 9", wantErr: true},
		{name: "too high", args: "1 10081", wantErr: true},
		{name: "missing minutes", args: "1", wantErr: true},
		{name: "not a number", args: "1 abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, mins, err := ParseIntervalArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantID, id); diff != "" {
				t.Errorf("id mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantMins, mins); diff != "" {
				t.Errorf("minutes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatReport(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(r *model.Report)
		wantContains []string
	}{
		{
			name: "window",
			wantContains: []string{
				"📊 Go News (@gonews)",
				"Subscribers: 1000",
				"Period: last 24 h",
				"09.03.2025 12:00 - 10.03.2025 12:00",
				"Posts: 2 (albums: 0)",
				"Views: 400 (avg 200.0 per post)",
				"ER: 2.50% of views, 1.00% of subscribers",
				"1. 300 views, Text: Go 1.24 released",
				"Best hours: 09:00 (300.0)",
				"🔥 Great engagement rate! Keep it up",
			},
		},
		{
			name: "fallback and questionable",
			mutate: func(r *model.Report) {
				r.AnalysisPeriod.UsedFallback = true
				r.AnalysisPeriod.FallbackReason = "last post 45 days ago"
				r.AnalysisPeriod.PostLimit = 30
				r.Summary.EngagementRate = model.EngagementRate{ERViews: 3, Quality: model.ERQualityQuestionable}
			},
			wantContains: []string{
				"Channel is inactive (last post 45 days ago), showing the last 30 posts",
				"(questionable)",
			},
		},
		{
			name: "long preview is shortened",
			mutate: func(r *model.Report) {
				r.TopPosts[0].TextPreview = strings.Repeat("word ", 30)
			},
			wantContains: []string{strings.Repeat("word ", 12) + "...\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := sampleReport()
			if tt.mutate != nil {
				tt.mutate(rep)
			}
			got := FormatReport(rep)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestFormatNoData(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	last := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		err  *model.NoDataError
		want string
	}{
		{
			name: "known last post",
			err:  &model.NoDataError{Channel: model.ChannelInfo{Title: "Quiet"}, Period: model.Period{HoursBack: 12}, LastMessageAt: &last},
			want: "No posts in Quiet during the last 12 hours.\nLast post: 2025-03-01 11:00",
		},
		{
			name: "empty channel",
			err:  &model.NoDataError{Period: model.Period{HoursBack: 24}},
			want: "No posts in the channel during the last 24 hours.\nLast post: unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatNoData(tt.err, msk)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: model.ErrNotFound, want: "Channel not found."},
		{err: model.ErrAccessDenied, want: "The channel is private or inaccessible."},
		{err: &model.RateLimitError{RetryAfter: 30 * time.Second}, want: "Telegram asked to slow down. Try again in 30 seconds."},
		{err: errors.New("boom"), want: "Analysis failed: boom"},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, FormatError(tt.err)); diff != "" {
			t.Errorf("FormatError(%v) mismatch (-want +got):\n%s", tt.err, diff)
		}
	}
}

func TestFormatTrackedList(t *testing.T) {
	lastCheck := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name         string
		list         []model.TrackedChannel
		wantContains []string
	}{
		{
			name:         "empty list",
			wantContains: []string{"not tracking any channels"},
		},
		{
			name: "with channels",
			list: []model.TrackedChannel{
				{ID: 1, Channel: "gonews", HoursBack: 24, IntervalMinutes: 1440, IsActive: true, LastCheckAt: &lastCheck},
				{ID: 2, Channel: "rustnews", HoursBack: 168, IntervalMinutes: 90, IsActive: false},
			},
			wantContains: []string{
				"#1 gonews  (last 24 h, every 1 d) [active]",
				"last report: 2025-06-15 10:30",
				"#2 rustnews  (last 168 h, every 90 min) [paused]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatTrackedList(tt.list, time.UTC)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		mins int
		want string
	}{
		{10, "10 min"},
		{60, "1 h"},
		{180, "3 h"},
		{1440, "1 d"},
		{10080, "7 d"},
		{90, "90 min"},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, formatInterval(tt.mins)); diff != "" {
			t.Errorf("formatInterval(%d) mismatch (-want +got):\n%s", tt.mins, diff)
		}
	}
}
