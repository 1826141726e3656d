package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tg_analytics/internal/model"
	"tg_analytics/internal/report"
)

const (
	statusActive = "active"
	statusPaused = "paused"

	previewInMessage = 60
	lastSeenLayout   = "2006-01-02 15:04"
)

// FormatReport renders a report as a chat message.
func FormatReport(rep *model.Report) string {
	var b strings.Builder
	ch := rep.ChannelInfo
	fmt.Fprintf(&b, "📊 %s", ch.Title)
	if ch.Username != "" {
		fmt.Fprintf(&b, " (@%s)", ch.Username)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subscribers: %d\n", ch.Subscribers)

	p := rep.AnalysisPeriod
	if p.UsedFallback {
		fmt.Fprintf(&b, "Channel is inactive (%s), showing the last %d posts\n", p.FallbackReason, p.PostLimit)
	} else {
		fmt.Fprintf(&b, "Period: last %d h\n", p.HoursBack)
	}
	fmt.Fprintf(&b, "%s - %s\n\n", p.StartTime, p.EndTime)

	s := rep.Summary
	fmt.Fprintf(&b, "Posts: %d (albums: %d)\n", s.TotalPosts, rep.GroupProcessingInfo.GroupsProcessed)
	fmt.Fprintf(&b, "Views: %d (avg %.1f per post)\n", s.TotalViews, s.AvgViewsPerPost)
	fmt.Fprintf(&b, "Reactions: %d, comments: %d, forwards: %d\n", s.TotalReactions, s.TotalComments, s.TotalForwards)
	er := s.EngagementRate
	fmt.Fprintf(&b, "ER: %.2f%% of views, %.2f%% of subscribers", er.ERViews, er.ERSubscribers)
	if er.Quality == model.ERQualityQuestionable {
		b.WriteString(" (questionable)")
	}
	b.WriteString("\n")

	if len(rep.TopPosts) > 0 {
		b.WriteString("\nTop posts:\n")
		for i, tp := range rep.TopPosts {
			fmt.Fprintf(&b, "%d. %d views, %s: %s\n", i+1, tp.Views, tp.ContentType, shorten(tp.TextPreview, previewInMessage))
		}
	}

	if len(rep.TimeAnalysis.BestHours) > 0 {
		hours := make([]string, 0, len(rep.TimeAnalysis.BestHours))
		for _, bh := range rep.TimeAnalysis.BestHours {
			hours = append(hours, fmt.Sprintf("%02d:00 (%.1f)", bh.Hour, bh.AvgViews))
		}
		fmt.Fprintf(&b, "\nBest hours: %s\n", strings.Join(hours, ", "))
	}

	if len(rep.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range rep.Recommendations {
			b.WriteString(r)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatNoData renders an empty analysis window.
func FormatNoData(e *model.NoDataError, loc *time.Location) string {
	name := e.Channel.Title
	if name == "" {
		name = "the channel"
	}
	last := "unknown"
	if e.LastMessageAt != nil {
		last = e.LastMessageAt.In(loc).Format(lastSeenLayout)
	}
	return fmt.Sprintf("No posts in %s during the last %d hours.\nLast post: %s", name, e.Period.HoursBack, last)
}

// FormatError turns a service error into a user-facing message.
func FormatError(err error) string {
	var rl *model.RateLimitError
	switch {
	case errors.As(err, &rl):
		return fmt.Sprintf("Telegram asked to slow down. Try again in %d seconds.", int(rl.RetryAfter.Seconds()))
	case errors.Is(err, model.ErrNotFound):
		return "Channel not found."
	case errors.Is(err, model.ErrAccessDenied):
		return "The channel is private or inaccessible."
	case errors.Is(err, report.ErrNarrativeDisabled):
		return "AI analysis is not configured."
	default:
		return fmt.Sprintf("Analysis failed: %v", err)
	}
}

// FormatTrackedList formats the tracked channels of a chat.
func FormatTrackedList(list []model.TrackedChannel, loc *time.Location) string {
	if len(list) == 0 {
		return "You are not tracking any channels yet. Use /track <channel> to add one."
	}
	var b strings.Builder
	b.WriteString("Tracked channels:\n")
	for _, tc := range list {
		status := statusActive
		if !tc.IsActive {
			status = statusPaused
		}
		fmt.Fprintf(&b, "\n#%d %s  (last %d h, every %s) [%s]\n", tc.ID, tc.Channel, tc.HoursBack, formatInterval(tc.IntervalMinutes), status)
		if tc.LastCheckAt != nil {
			fmt.Fprintf(&b, "   last report: %s\n", tc.LastCheckAt.In(loc).Format(lastSeenLayout))
		}
	}
	return b.String()
}

func formatInterval(mins int) string {
	switch {
	case mins%(24*60) == 0:
		return fmt.Sprintf("%d d", mins/(24*60))
	case mins%60 == 0:
		return fmt.Sprintf("%d h", mins/60)
	default:
		return fmt.Sprintf("%d min", mins)
	}
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
