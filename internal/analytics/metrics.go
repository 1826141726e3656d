// Package analytics turns a snapshot of channel messages into an engagement report.
// Everything here is pure: no I/O, no shared state.
package analytics

import "tg_analytics/internal/model"

// Views returns the view counter of a message, or 0 when absent.
func Views(m model.RawMessage) int {
	if m.Views == nil {
		return 0
	}
	return *m.Views
}

// Reactions returns the sum of all reaction counters of a message.
func Reactions(m model.RawMessage) int {
	if m.Reactions == nil {
		return 0
	}
	total := 0
	for _, r := range m.Reactions.Results {
		total += r.Count
	}
	return total
}

// Forwards returns the forward counter of a message, or 0 when absent.
func Forwards(m model.RawMessage) int {
	if m.Forwards == nil {
		return 0
	}
	return *m.Forwards
}

// Comments returns the reply counter of a message, or 0 when comments are off.
func Comments(m model.RawMessage) int {
	if m.Replies == nil {
		return 0
	}
	return m.Replies.Count
}
