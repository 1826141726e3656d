package analytics

import (
	"fmt"
	"time"

	"tg_analytics/internal/model"
)

// Fallback policy constants.
const (
	InactivityThreshold = 30 * 24 * time.Hour
	FallbackPostLimit   = 30
)

// SelectPeriod chooses the messages to analyse. When the newest dated message
// is older than InactivityThreshold the last FallbackPostLimit dated messages
// are used instead of the requested window. msgs is expected newest first.
func SelectPeriod(msgs []model.RawMessage, hoursBack int, now time.Time) ([]model.RawMessage, model.Period) {
	hoursBack = NormalizeHoursBack(hoursBack)

	dated := make([]model.RawMessage, 0, len(msgs))
	var last *time.Time
	for _, m := range msgs {
		if m.Date == nil {
			continue
		}
		dated = append(dated, m)
		if last == nil || m.Date.After(*last) {
			d := *m.Date
			last = &d
		}
	}

	if last != nil && now.Sub(*last) > InactivityThreshold {
		n := min(FallbackPostLimit, len(dated))
		subset := dated[:n]
		days := int(now.Sub(*last).Hours() / 24)

		start := now
		for _, m := range subset {
			if m.Date.Before(start) {
				start = *m.Date
			}
		}
		return subset, model.Period{
			Mode:          model.PeriodFallback,
			HoursBack:     hoursBack,
			Start:         start,
			End:           now,
			PostLimit:     FallbackPostLimit,
			InactiveDays:  days,
			Reason:        fmt.Sprintf("last post %d days ago", days),
			LastMessageAt: last,
		}
	}

	start := now.Add(-time.Duration(hoursBack) * time.Hour)
	var subset []model.RawMessage
	for _, m := range dated {
		if m.Date.Before(start) || m.Date.After(now) {
			continue
		}
		subset = append(subset, m)
	}
	return subset, model.Period{
		Mode:          model.PeriodWindow,
		HoursBack:     hoursBack,
		Start:         start,
		End:           now,
		LastMessageAt: last,
	}
}

// EffectiveHours is the span used for cadence: the requested window, or for
// fallback the time from the oldest analysed post to now, at least one hour.
func EffectiveHours(p model.Period) float64 {
	if p.Mode != model.PeriodFallback {
		return float64(p.HoursBack)
	}
	return max(p.End.Sub(p.Start).Hours(), 1)
}
