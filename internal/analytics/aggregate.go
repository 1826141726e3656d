package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"tg_analytics/internal/model"
)

// Ranking sizes.
const (
	TopPostsLimit  = 5
	BestHoursLimit = 3
)

// questionableER is the subscriber-relative rate above which the value is
// treated as a measurement anomaly and reported as zero.
const questionableER = 100.0

// Aggregate holds everything computed from a post subset.
type Aggregate struct {
	Summary  model.Summary
	Content  model.ContentBreakdown
	Time     model.TimeAnalysis
	TopPosts []model.TopPost
}

// Summarize computes totals, breakdowns and rankings over posts.
// Hours and dates are expressed in loc.
func Summarize(posts []model.Post, subscribers int, loc *time.Location) Aggregate {
	if loc == nil {
		loc = time.UTC
	}

	var sum model.Summary
	sum.TotalPosts = len(posts)
	for _, p := range posts {
		sum.TotalViews += p.Views
		sum.TotalReactions += p.Reactions
		sum.TotalComments += p.Comments
		sum.TotalForwards += p.Forwards
	}
	if sum.TotalPosts > 0 {
		sum.AvgViewsPerPost = round(float64(sum.TotalViews)/float64(sum.TotalPosts), 1)
	}
	sum.EngagementRate = EngagementRate(sum.TotalViews, sum.TotalReactions+sum.TotalComments+sum.TotalForwards, subscribers)

	return Aggregate{
		Summary:  sum,
		Content:  breakdown(posts),
		Time:     timeProfile(posts, loc),
		TopPosts: topPosts(posts, loc),
	}
}

// EngagementRate derives interaction ratios in percent.
// Both rates are zero with quality low when views or subscribers are zero.
// A subscriber rate over 100% is reported as zero with quality questionable.
func EngagementRate(views, interactions, subscribers int) model.EngagementRate {
	if views == 0 || subscribers == 0 {
		return model.EngagementRate{Quality: model.ERQualityLow}
	}

	er := model.EngagementRate{
		ERViews: round(float64(interactions)/float64(views)*100, 2),
		Quality: model.ERQualityNormal,
	}
	subs := float64(interactions) / float64(subscribers) * 100
	if subs > questionableER {
		er.Quality = model.ERQualityQuestionable
		return er
	}
	er.ERSubscribers = round(subs, 2)
	return er
}

func breakdown(posts []model.Post) model.ContentBreakdown {
	idx := make(map[model.Category]int)
	var out model.ContentBreakdown
	for _, p := range posts {
		i, ok := idx[p.Category]
		if !ok {
			i = len(out)
			idx[p.Category] = i
			out = append(out, model.ContentTypeStat{Category: p.Category})
		}
		st := &out[i]
		st.Count++
		st.TotalViews += p.Views
		st.TotalReactions += p.Reactions
		st.TotalComments += p.Comments
		st.TotalForwards += p.Forwards
	}
	return out
}

func timeProfile(posts []model.Post, loc *time.Location) model.TimeAnalysis {
	stats := make(map[int]model.HourStat)
	var hours []int
	for _, p := range posts {
		h := p.Date.In(loc).Hour()
		st, ok := stats[h]
		if !ok {
			hours = append(hours, h)
		}
		st.Count++
		st.TotalViews += p.Views
		stats[h] = st
	}

	avg := func(h int) float64 {
		st := stats[h]
		return float64(st.TotalViews) / float64(st.Count)
	}
	sort.SliceStable(hours, func(i, j int) bool { return avg(hours[i]) > avg(hours[j]) })

	best := make([]model.BestHour, 0, BestHoursLimit)
	for _, h := range hours[:min(BestHoursLimit, len(hours))] {
		best = append(best, model.BestHour{Hour: h, AvgViews: round(avg(h), 1)})
	}
	return model.TimeAnalysis{HourlyStats: stats, BestHours: best}
}

func topPosts(posts []model.Post, loc *time.Location) []model.TopPost {
	ranked := make([]model.Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Views > ranked[j].Views })

	out := make([]model.TopPost, 0, TopPostsLimit)
	for _, p := range ranked[:min(TopPostsLimit, len(ranked))] {
		label := p.Category.Label()
		if p.IsGroup {
			label = fmt.Sprintf("%s (album of %d)", label, p.GroupSize)
		}
		out = append(out, model.TopPost{
			ID:          p.ID,
			Date:        p.Date.In(loc).Format(model.ReportDateLayout),
			Views:       p.Views,
			Reactions:   p.Reactions,
			Forwards:    p.Forwards,
			TextPreview: p.TextPreview,
			ContentType: label,
			IsGroup:     p.IsGroup,
			GroupSize:   p.GroupSize,
		})
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
