package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Date layouts used in reports.
const (
	ReportDateLayout      = "02.01.2006 15:04"
	ReportTimestampLayout = "02.01.2006 15:04:05"
)

// PeriodMode tells how the analysed subset was chosen.
type PeriodMode string

// Supported period modes.
const (
	PeriodWindow   PeriodMode = "window"
	PeriodFallback PeriodMode = "fallback"
)

// Period describes the analysed slice of channel history.
type Period struct {
	Mode          PeriodMode
	HoursBack     int
	Start         time.Time
	End           time.Time
	PostLimit     int
	InactiveDays  int
	Reason        string
	LastMessageAt *time.Time
}

// UsedFallback reports whether the "last N posts" policy was applied.
func (p Period) UsedFallback() bool {
	return p.Mode == PeriodFallback
}

// ERQuality flags how trustworthy an engagement rate is.
type ERQuality string

// Engagement rate quality flags.
const (
	ERQualityLow          ERQuality = "low"
	ERQualityQuestionable ERQuality = "questionable"
	ERQualityNormal       ERQuality = "normal"
)

// EngagementRate holds interaction ratios expressed as percentages.
type EngagementRate struct {
	ERViews       float64   `json:"er_views"`
	ERSubscribers float64   `json:"er_subscribers"`
	Quality       ERQuality `json:"er_quality"`
}

// ContentTypeStat accumulates metrics of the posts in one category.
type ContentTypeStat struct {
	Category       Category `json:"-"`
	Count          int      `json:"count"`
	TotalViews     int      `json:"total_views"`
	TotalReactions int      `json:"total_reactions"`
	TotalComments  int      `json:"total_comments"`
	TotalForwards  int      `json:"total_forwards"`
}

// ContentBreakdown is the per-category partition of posts in first-seen order.
// It is encoded as a JSON object keyed by category tag.
type ContentBreakdown []ContentTypeStat

// MarshalJSON keeps first-seen order in the encoded object.
func (cb ContentBreakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, st := range cb {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(st.Category.String())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(st)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the object form; entries are ordered by tag.
func (cb *ContentBreakdown) UnmarshalJSON(data []byte) error {
	var raw map[string]ContentTypeStat
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(ContentBreakdown, 0, len(keys))
	for _, k := range keys {
		cat, err := ParseCategory(k)
		if err != nil {
			return fmt.Errorf("content analysis: %w", err)
		}
		st := raw[k]
		st.Category = cat
		out = append(out, st)
	}
	*cb = out
	return nil
}

// Find returns the stat of a category.
func (cb ContentBreakdown) Find(c Category) (ContentTypeStat, bool) {
	for _, st := range cb {
		if st.Category == c {
			return st, true
		}
	}
	return ContentTypeStat{}, false
}

// HourStat accumulates posts published in one local hour.
type HourStat struct {
	Count      int `json:"count"`
	TotalViews int `json:"total_views"`
}

// BestHour is a ranked publishing hour.
type BestHour struct {
	Hour     int     `json:"hour"`
	AvgViews float64 `json:"avg_views"`
}

// TimeAnalysis is the hour-of-day profile of a report.
type TimeAnalysis struct {
	HourlyStats map[int]HourStat `json:"hourly_stats"`
	BestHours   []BestHour       `json:"best_hours"`
}

// TopPost is a post listed among the most viewed.
type TopPost struct {
	ID          int    `json:"id"`
	Date        string `json:"date"`
	Views       int    `json:"views"`
	Reactions   int    `json:"reactions"`
	Forwards    int    `json:"forwards"`
	TextPreview string `json:"text_preview"`
	ContentType string `json:"content_type"`
	IsGroup     bool   `json:"is_group"`
	GroupSize   int    `json:"group_size"`
}

// Summary holds report totals.
type Summary struct {
	TotalPosts      int            `json:"total_posts"`
	TotalViews      int            `json:"total_views"`
	AvgViewsPerPost float64        `json:"avg_views_per_post"`
	TotalReactions  int            `json:"total_reactions"`
	TotalComments   int            `json:"total_comments"`
	TotalForwards   int            `json:"total_forwards"`
	EngagementRate  EngagementRate `json:"engagement_rate"`
}

// AnalysisPeriod is the wire form of Period.
type AnalysisPeriod struct {
	HoursBack      int    `json:"hours_back"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	UsedFallback   bool   `json:"used_fallback"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	PostLimit      int    `json:"post_limit,omitempty"`
}

// GroupProcessingInfo tells how many albums and single messages were analysed.
type GroupProcessingInfo struct {
	GroupsProcessed int `json:"groups_processed"`
	SingleMessages  int `json:"single_messages"`
}

// Report is the analytics report of a channel.
type Report struct {
	ChannelInfo         ChannelInfo         `json:"channel_info"`
	AnalysisPeriod      AnalysisPeriod      `json:"analysis_period"`
	Summary             Summary             `json:"summary"`
	ContentAnalysis     ContentBreakdown    `json:"content_analysis"`
	TimeAnalysis        TimeAnalysis        `json:"time_analysis"`
	TopPosts            []TopPost           `json:"top_posts"`
	Recommendations     []string            `json:"recommendations"`
	GeneratedAt         string              `json:"generated_at"`
	GroupProcessingInfo GroupProcessingInfo `json:"group_processing_info"`
}
