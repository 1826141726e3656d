package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"tg_analytics/internal/model"
	"tg_analytics/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateTracked inserts a tracked channel and populates its ID and CreatedAt.
func (s *SQLite) CreateTracked(ctx context.Context, tc *model.TrackedChannel) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tracked_channels (chat_id, channel, hours_back, interval_minutes, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tc.ChatID, tc.Channel, tc.HoursBack, tc.IntervalMinutes, boolToInt(tc.IsActive), now,
	)
	if err != nil {
		return fmt.Errorf("insert tracked channel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	tc.ID = id
	tc.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetTracked returns a single tracked channel by its ID.
func (s *SQLite) GetTracked(ctx context.Context, id int64) (*model.TrackedChannel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, channel, hours_back, interval_minutes, is_active, last_check_at, created_at
		 FROM tracked_channels WHERE id = ?`, id,
	)
	return scanTracked(row)
}

// ListTracked returns all channels tracked by the given chat.
func (s *SQLite) ListTracked(ctx context.Context, chatID int64) ([]model.TrackedChannel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, channel, hours_back, interval_minutes, is_active, last_check_at, created_at
		 FROM tracked_channels WHERE chat_id = ? ORDER BY id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tracked channels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTrackedRows(rows)
}

// ListDueTracked returns all active tracked channels whose report is due.
func (s *SQLite) ListDueTracked(ctx context.Context) ([]model.TrackedChannel, error) {
	now := time.Now().UTC().Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, channel, hours_back, interval_minutes, is_active, last_check_at, created_at
		 FROM tracked_channels
		 WHERE is_active = 1
		   AND (last_check_at IS NULL
		        OR datetime(last_check_at, '+' || interval_minutes || ' minutes') <= datetime(?))
		 ORDER BY id`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("query due tracked channels: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanTrackedRows(rows)
}

// UpdateTracked persists changes to an existing tracked channel.
func (s *SQLite) UpdateTracked(ctx context.Context, tc *model.TrackedChannel) error {
	var lastCheck *string
	if tc.LastCheckAt != nil {
		v := tc.LastCheckAt.UTC().Format(timeLayout)
		lastCheck = &v
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE tracked_channels SET channel = ?, hours_back = ?, interval_minutes = ?, is_active = ?, last_check_at = ?
		 WHERE id = ?`,
		tc.Channel, tc.HoursBack, tc.IntervalMinutes, boolToInt(tc.IsActive), lastCheck, tc.ID,
	)
	if err != nil {
		return fmt.Errorf("update tracked channel: %w", err)
	}
	return nil
}

// DeleteTracked removes a tracked channel.
func (s *SQLite) DeleteTracked(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tracked_channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tracked channel: %w", err)
	}
	return nil
}

// SaveNarrative stores a generated narrative. A zero CreatedAt is set to now.
func (s *SQLite) SaveNarrative(ctx context.Context, n *model.Narrative) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = n.CreatedAt.UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO narratives (channel_id, hours_back, body, created_at) VALUES (?, ?, ?, ?)`,
		n.ChannelID, n.HoursBack, n.Body, n.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert narrative: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	return nil
}

// FreshNarrative returns the newest narrative for the channel and window
// created at or after since. It returns ErrNotFound when there is none.
func (s *SQLite) FreshNarrative(ctx context.Context, channelID int64, hoursBack int, since time.Time) (*model.Narrative, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, channel_id, hours_back, body, created_at
		 FROM narratives
		 WHERE channel_id = ? AND hours_back = ? AND created_at >= ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		channelID, hoursBack, since.UTC().Format(timeLayout),
	)

	var n model.Narrative
	var created string
	err := row.Scan(&n.ID, &n.ChannelID, &n.HoursBack, &n.Body, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan narrative: %w", err)
	}
	n.CreatedAt, _ = time.Parse(timeLayout, created)
	return &n, nil
}

// KeepRecentNarratives deletes all but the keep newest narratives of a channel.
func (s *SQLite) KeepRecentNarratives(ctx context.Context, channelID int64, keep int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM narratives
		 WHERE channel_id = ?
		   AND id NOT IN (
		       SELECT id FROM narratives WHERE channel_id = ?
		       ORDER BY created_at DESC, id DESC LIMIT ?)`,
		channelID, channelID, keep,
	)
	if err != nil {
		return fmt.Errorf("trim narratives: %w", err)
	}
	return nil
}

// DeleteNarrativesBefore removes narratives created before cutoff and
// returns how many were deleted.
func (s *SQLite) DeleteNarrativesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM narratives WHERE created_at < ?`, cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old narratives: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// SaveAISettings inserts or replaces the narrative settings of a channel.
func (s *SQLite) SaveAISettings(ctx context.Context, st *model.AISettings) error {
	areas := st.FocusAreas
	if areas == nil {
		areas = []string{}
	}
	raw, err := json.Marshal(areas)
	if err != nil {
		return fmt.Errorf("encode focus areas: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ai_settings (channel_id, focus_areas, niche, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(channel_id) DO UPDATE SET
		     focus_areas = excluded.focus_areas,
		     niche = excluded.niche,
		     updated_at = excluded.updated_at`,
		st.ChannelID, string(raw), st.Niche, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert ai settings: %w", err)
	}
	return nil
}

// GetAISettings returns the narrative settings of a channel or ErrNotFound.
func (s *SQLite) GetAISettings(ctx context.Context, channelID int64) (*model.AISettings, error) {
	var st model.AISettings
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT channel_id, focus_areas, niche FROM ai_settings WHERE channel_id = ?`, channelID,
	).Scan(&st.ChannelID, &raw, &st.Niche)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ai settings: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &st.FocusAreas); err != nil {
		return nil, fmt.Errorf("decode focus areas: %w", err)
	}
	return &st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTracked(row scannable) (*model.TrackedChannel, error) {
	var tc model.TrackedChannel
	var isActive int
	var lastCheck, created sql.NullString
	err := row.Scan(&tc.ID, &tc.ChatID, &tc.Channel, &tc.HoursBack, &tc.IntervalMinutes, &isActive, &lastCheck, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tracked channel: %w", err)
	}
	tc.IsActive = isActive == 1
	if lastCheck.Valid {
		t, _ := time.Parse(timeLayout, lastCheck.String)
		tc.LastCheckAt = &t
	}
	if created.Valid {
		tc.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &tc, nil
}

func scanTrackedRows(rows *sql.Rows) ([]model.TrackedChannel, error) {
	var out []model.TrackedChannel
	for rows.Next() {
		tc, err := scanTracked(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tc)
	}
	return out, rows.Err()
}
