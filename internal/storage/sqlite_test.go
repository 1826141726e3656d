package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"tg_analytics/internal/model"
)

var ignoreTimestamps = cmpopts.IgnoreFields(model.TrackedChannel{}, "CreatedAt", "LastCheckAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTrackedCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tests := []struct {
		name string
		tc   model.TrackedChannel
	}{
		{
			name: "daily report",
			tc: model.TrackedChannel{
				ChatID:          12345,
				Channel:         "durov",
				HoursBack:       24,
				IntervalMinutes: 1440,
				IsActive:        true,
			},
		},
		{
			name: "paused weekly report",
			tc: model.TrackedChannel{
				ChatID:          67890,
				Channel:         "-1001234567890",
				HoursBack:       168,
				IntervalMinutes: 10080,
				IsActive:        false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := tt.tc
			if err := s.CreateTracked(ctx, &tc); err != nil {
				t.Fatalf("create: %v", err)
			}
			if tc.ID == 0 {
				t.Fatal("expected non-zero ID")
			}

			got, err := s.GetTracked(ctx, tc.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			want := tt.tc
			want.ID = tc.ID
			if diff := cmp.Diff(want, *got, ignoreTimestamps); diff != "" {
				t.Errorf("GetTracked mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListTracked(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	chatID := int64(111)
	channels := []model.TrackedChannel{
		{ChatID: chatID, Channel: "a", HoursBack: 24, IntervalMinutes: 60, IsActive: true},
		{ChatID: chatID, Channel: "b", HoursBack: 48, IntervalMinutes: 120, IsActive: false},
		{ChatID: 999, Channel: "c", HoursBack: 24, IntervalMinutes: 60, IsActive: true},
	}
	for i := range channels {
		if err := s.CreateTracked(ctx, &channels[i]); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	got, err := s.ListTracked(ctx, chatID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []model.TrackedChannel{
		{ID: channels[0].ID, ChatID: chatID, Channel: "a", HoursBack: 24, IntervalMinutes: 60, IsActive: true},
		{ID: channels[1].ID, ChatID: chatID, Channel: "b", HoursBack: 48, IntervalMinutes: 120, IsActive: false},
	}
	if diff := cmp.Diff(want, got, ignoreTimestamps); diff != "" {
		t.Errorf("ListTracked mismatch (-want +got):\n%s", diff)
	}
}

func TestTrackedDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tc := model.TrackedChannel{ChatID: 1, Channel: "dup", HoursBack: 24, IntervalMinutes: 60, IsActive: true}
	if err := s.CreateTracked(ctx, &tc); err != nil {
		t.Fatalf("create: %v", err)
	}
	again := tc
	if err := s.CreateTracked(ctx, &again); err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestUpdateAndDeleteTracked(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tc := model.TrackedChannel{ChatID: 1, Channel: "old", HoursBack: 24, IntervalMinutes: 60, IsActive: true}
	if err := s.CreateTracked(ctx, &tc); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	tc.HoursBack = 72
	tc.IntervalMinutes = 30
	tc.IsActive = false
	tc.LastCheckAt = &now
	if err := s.UpdateTracked(ctx, &tc); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetTracked(ctx, tc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := model.TrackedChannel{ID: tc.ID, ChatID: 1, Channel: "old", HoursBack: 72, IntervalMinutes: 30}
	if diff := cmp.Diff(want, *got, ignoreTimestamps); diff != "" {
		t.Errorf("UpdateTracked mismatch (-want +got):\n%s", diff)
	}
	if got.LastCheckAt == nil || !got.LastCheckAt.Equal(now) {
		t.Errorf("LastCheckAt = %v, want %v", got.LastCheckAt, now)
	}

	if err := s.DeleteTracked(ctx, tc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTracked(ctx, tc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get deleted: got %v, want ErrNotFound", err)
	}
}

func TestListDueTracked(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	past := time.Now().UTC().Add(-30 * time.Minute).Truncate(time.Second)
	recent := time.Now().UTC().Add(-2 * time.Minute).Truncate(time.Second)

	channels := []struct {
		name    string
		tc      model.TrackedChannel
		wantDue bool
	}{
		{
			name:    "never checked",
			tc:      model.TrackedChannel{ChatID: 1, Channel: "a", HoursBack: 24, IntervalMinutes: 15, IsActive: true},
			wantDue: true,
		},
		{
			name:    "checked long ago",
			tc:      model.TrackedChannel{ChatID: 1, Channel: "b", HoursBack: 24, IntervalMinutes: 15, IsActive: true, LastCheckAt: &past},
			wantDue: true,
		},
		{
			name:    "checked recently",
			tc:      model.TrackedChannel{ChatID: 1, Channel: "c", HoursBack: 24, IntervalMinutes: 15, IsActive: true, LastCheckAt: &recent},
			wantDue: false,
		},
		{
			name:    "paused",
			tc:      model.TrackedChannel{ChatID: 1, Channel: "d", HoursBack: 24, IntervalMinutes: 15, IsActive: false},
			wantDue: false,
		},
	}

	for i := range channels {
		if err := s.CreateTracked(ctx, &channels[i].tc); err != nil {
			t.Fatalf("create: %v", err)
		}
		if channels[i].tc.LastCheckAt != nil {
			if err := s.UpdateTracked(ctx, &channels[i].tc); err != nil {
				t.Fatalf("update: %v", err)
			}
		}
	}

	got, err := s.ListDueTracked(ctx)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}

	var wantIDs []int64
	for _, c := range channels {
		if c.wantDue {
			wantIDs = append(wantIDs, c.tc.ID)
		}
	}
	var gotIDs []int64
	for _, c := range got {
		gotIDs = append(gotIDs, c.ID)
	}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("due IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestFreshNarrative(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	narratives := []model.Narrative{
		{ChannelID: 7, HoursBack: 24, Body: "stale", CreatedAt: now.Add(-2 * time.Hour)},
		{ChannelID: 7, HoursBack: 24, Body: "fresh", CreatedAt: now.Add(-10 * time.Minute)},
		{ChannelID: 7, HoursBack: 48, Body: "other window", CreatedAt: now},
		{ChannelID: 8, HoursBack: 24, Body: "other channel", CreatedAt: now},
	}
	for i := range narratives {
		if err := s.SaveNarrative(ctx, &narratives[i]); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	got, err := s.FreshNarrative(ctx, 7, 24, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}
	if diff := cmp.Diff(narratives[1], *got); diff != "" {
		t.Errorf("FreshNarrative mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.FreshNarrative(ctx, 7, 72, now.Add(-time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing window: got %v, want ErrNotFound", err)
	}
}

func TestNarrativeRetention(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 8; i++ {
		n := model.Narrative{ChannelID: 1, HoursBack: 24, Body: "n", CreatedAt: now.Add(-time.Duration(i) * 24 * time.Hour)}
		if err := s.SaveNarrative(ctx, &n); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	other := model.Narrative{ChannelID: 2, HoursBack: 24, Body: "keep", CreatedAt: now.Add(-40 * 24 * time.Hour)}
	if err := s.SaveNarrative(ctx, &other); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.KeepRecentNarratives(ctx, 1, 5); err != nil {
		t.Fatalf("keep recent: %v", err)
	}
	if _, err := s.FreshNarrative(ctx, 1, 24, now.Add(-4*24*time.Hour)); err != nil {
		t.Errorf("newest narratives should survive: %v", err)
	}

	deleted, err := s.DeleteNarrativesBefore(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d narratives, want 1", deleted)
	}

	deleted, err = s.DeleteNarrativesBefore(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 5 {
		t.Errorf("deleted %d narratives, want 5 left after trimming", deleted)
	}
}

func TestAISettings(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if _, err := s.GetAISettings(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	tests := []struct {
		name string
		in   model.AISettings
		want model.AISettings
	}{
		{
			name: "insert",
			in:   model.AISettings{ChannelID: 42, FocusAreas: []string{"engagement", "timing"}, Niche: "crypto"},
			want: model.AISettings{ChannelID: 42, FocusAreas: []string{"engagement", "timing"}, Niche: "crypto"},
		},
		{
			name: "update clears focus areas",
			in:   model.AISettings{ChannelID: 42, Niche: "finance"},
			want: model.AISettings{ChannelID: 42, FocusAreas: []string{}, Niche: "finance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			if err := s.SaveAISettings(ctx, &in); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := s.GetAISettings(ctx, tt.in.ChannelID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Errorf("GetAISettings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Ensure the Storage interface is satisfied.
var _ Storage = (*SQLite)(nil)
