// Package model defines the domain types used across the application.
package model

import "time"

// MediaKind is the coarse media type of a message attachment.
type MediaKind string

// Supported media kinds.
const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaOther    MediaKind = "other"
)

// Media describes a message attachment. MIMEType is only meaningful for documents.
type Media struct {
	Kind     MediaKind
	MIMEType string
}

// ReactionCount is the number of reactions of a single kind.
type ReactionCount struct {
	Reaction string
	Count    int
}

// Reactions holds the per-kind reaction counters of a message.
type Reactions struct {
	Results []ReactionCount
}

// Replies holds the comment thread counter of a message.
type Replies struct {
	Count int
}

// RawMessage is a channel message as returned by the message source.
// Nil pointers mean the source did not report the field.
type RawMessage struct {
	ID        int
	Date      *time.Time
	Text      string
	Media     *Media
	GroupID   int64
	Views     *int
	Reactions *Reactions
	Forwards  *int
	Replies   *Replies
}

// Post is a logical post: a single message or an album of messages sharing a group id.
type Post struct {
	ID          int
	Date        time.Time
	Views       int
	Reactions   int
	Forwards    int
	Comments    int
	TextPreview string
	Category    Category
	IsGroup     bool
	GroupSize   int
}

// ChannelInfo is the channel metadata used in reports.
type ChannelInfo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Username    string `json:"username"`
	Subscribers int    `json:"subscribers"`
	Description string `json:"description"`
}

// ChannelRef is a channel found by a search query.
type ChannelRef struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	IsChannel bool   `json:"is_channel"`
}

// TrackedChannel is a channel the bot reports on periodically for a chat.
type TrackedChannel struct {
	ID              int64
	ChatID          int64
	Channel         string
	HoursBack       int
	IntervalMinutes int
	IsActive        bool
	LastCheckAt     *time.Time
	CreatedAt       time.Time
}

// Narrative is a stored AI narrative for a channel report.
type Narrative struct {
	ID        int64
	ChannelID int64
	HoursBack int
	Body      string
	CreatedAt time.Time
}

// AISettings holds per-channel hints for the narrative generator.
type AISettings struct {
	ChannelID  int64    `json:"channel_id"`
	FocusAreas []string `json:"focus_areas"`
	Niche      string   `json:"niche"`
}
