package analytics

import (
	"fmt"
	"time"

	"tg_analytics/internal/model"
)

// Cadence and engagement thresholds.
const (
	minPostsPerDay = 1.0
	maxPostsPerDay = 5.0
	lowERViews     = 1.0
	highERViews    = 5.0
)

// RecommendInput is what the recommendation rules look at.
type RecommendInput struct {
	Content    model.ContentBreakdown
	Time       model.TimeAnalysis
	Engagement model.EngagementRate
	TotalPosts int
	// Hours is the span the posts were published over.
	Hours    float64
	Location *time.Location
}

// Recommend applies the rule set in a fixed order: content, timing, cadence,
// engagement. Each rule adds at most one line.
func Recommend(in RecommendInput) []string {
	recs := []string{}

	if cat, avg, ok := bestCategory(in.Content); ok {
		recs = append(recs, fmt.Sprintf("🎯 Best performing content type: %s (%.0f views on average)", cat.Label(), avg))
	}

	if len(in.Time.BestHours) > 0 {
		recs = append(recs, "⏰ Best time to publish: "+hourWindow(in.Time.BestHours[0].Hour, in.Location))
	}

	if in.Hours > 0 {
		perDay := float64(in.TotalPosts) / (in.Hours / 24)
		switch {
		case perDay < minPostsPerDay:
			recs = append(recs, "📈 Consider posting more often (at least one post per day)")
		case perDay > maxPostsPerDay:
			recs = append(recs, "⚠️ Consider posting less often to improve engagement")
		}
	}

	switch er := in.Engagement.ERViews; {
	case er < lowERViews:
		recs = append(recs, "💡 Low engagement rate. Try more interactive content")
	case er > highERViews:
		recs = append(recs, "🔥 Great engagement rate! Keep it up")
	}

	return recs
}

// bestCategory picks the category with the highest average views.
// The first category wins ties.
func bestCategory(cb model.ContentBreakdown) (model.Category, float64, bool) {
	var (
		best  model.Category
		avg   float64
		found bool
	)
	for _, st := range cb {
		if st.Count == 0 {
			continue
		}
		a := float64(st.TotalViews) / float64(st.Count)
		if !found || a > avg {
			best, avg, found = st.Category, a, true
		}
	}
	return best, avg, found
}

func hourWindow(hour int, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%02d:00-%02d:00 %s", hour, (hour+1)%24, loc.String())
}
