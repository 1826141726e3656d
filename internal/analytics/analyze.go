package analytics

import (
	"time"

	"tg_analytics/internal/model"
)

// DefaultHoursBack is used when the caller passes no usable window.
const DefaultHoursBack = 24

// MaxHoursBack caps the window at ten years, well inside time.Duration range.
const MaxHoursBack = 24 * 365 * 10

// NormalizeHoursBack maps a non-positive window to DefaultHoursBack and caps
// larger ones at MaxHoursBack.
func NormalizeHoursBack(h int) int {
	switch {
	case h <= 0:
		return DefaultHoursBack
	case h > MaxHoursBack:
		return MaxHoursBack
	default:
		return h
	}
}

// Input is one analysis request over an already fetched message snapshot.
// Messages are expected newest first.
type Input struct {
	Channel   model.ChannelInfo
	Messages  []model.RawMessage
	HoursBack int
	Now       time.Time
	Location  *time.Location
}

// Analyze runs the full pipeline and builds a report.
// It returns *model.NoDataError when the selected period holds no posts.
func Analyze(in Input) (*model.Report, error) {
	in.HoursBack = NormalizeHoursBack(in.HoursBack)
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	subset, period := SelectPeriod(in.Messages, in.HoursBack, in.Now)
	rec := Reconcile(subset)
	if len(rec.Posts) == 0 {
		return nil, &model.NoDataError{
			Channel:       in.Channel,
			Period:        period,
			LastMessageAt: period.LastMessageAt,
		}
	}

	agg := Summarize(rec.Posts, in.Channel.Subscribers, loc)
	recs := Recommend(RecommendInput{
		Content:    agg.Content,
		Time:       agg.Time,
		Engagement: agg.Summary.EngagementRate,
		TotalPosts: agg.Summary.TotalPosts,
		Hours:      EffectiveHours(period),
		Location:   loc,
	})

	return &model.Report{
		ChannelInfo:     in.Channel,
		AnalysisPeriod:  wirePeriod(period, loc),
		Summary:         agg.Summary,
		ContentAnalysis: agg.Content,
		TimeAnalysis:    agg.Time,
		TopPosts:        agg.TopPosts,
		Recommendations: recs,
		GeneratedAt:     in.Now.In(loc).Format(model.ReportTimestampLayout),
		GroupProcessingInfo: model.GroupProcessingInfo{
			GroupsProcessed: rec.Groups,
			SingleMessages:  rec.Singles,
		},
	}, nil
}

func wirePeriod(p model.Period, loc *time.Location) model.AnalysisPeriod {
	ap := model.AnalysisPeriod{
		HoursBack: p.HoursBack,
		StartTime: p.Start.In(loc).Format(model.ReportDateLayout),
		EndTime:   p.End.In(loc).Format(model.ReportDateLayout),
	}
	if p.UsedFallback() {
		ap.UsedFallback = true
		ap.FallbackReason = p.Reason
		ap.PostLimit = p.PostLimit
	}
	return ap
}
