// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"tg_analytics/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateTracked(ctx context.Context, tc *model.TrackedChannel) error
	GetTracked(ctx context.Context, id int64) (*model.TrackedChannel, error)
	ListTracked(ctx context.Context, chatID int64) ([]model.TrackedChannel, error)
	ListDueTracked(ctx context.Context) ([]model.TrackedChannel, error)
	UpdateTracked(ctx context.Context, tc *model.TrackedChannel) error
	DeleteTracked(ctx context.Context, id int64) error

	SaveNarrative(ctx context.Context, n *model.Narrative) error
	FreshNarrative(ctx context.Context, channelID int64, hoursBack int, since time.Time) (*model.Narrative, error)
	KeepRecentNarratives(ctx context.Context, channelID int64, keep int) error
	DeleteNarrativesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	SaveAISettings(ctx context.Context, s *model.AISettings) error
	GetAISettings(ctx context.Context, channelID int64) (*model.AISettings, error)

	Close() error
}
