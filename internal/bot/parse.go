package bot

import (
	"fmt"
	"strconv"
	"strings"

	"tg_analytics/internal/analytics"
)

// Limits of tracked channel settings.
const (
	minIntervalMinutes     = 10
	maxIntervalMinutes     = 7 * 24 * 60
	defaultIntervalMinutes = 24 * 60
)

// ChannelArgs holds the parsed arguments of /analyze, /ai, /pdf and /track.
type ChannelArgs struct {
	Channel   string
	HoursBack int
}

// String renders the arguments back into command form.
func (a ChannelArgs) String() string {
	return fmt.Sprintf("%s %d", a.Channel, a.HoursBack)
}

// ParseChannelArgs parses "<channel> [hours]". The channel may be a username,
// an @username, a t.me link or a numeric id. A missing or invalid hours value
// selects the default window; oversized values are capped.
func ParseChannelArgs(args string) (ChannelArgs, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return ChannelArgs{}, fmt.Errorf("channel is required")
	}

	out := ChannelArgs{Channel: parts[0], HoursBack: analytics.DefaultHoursBack}
	if len(parts) > 1 {
		if h, err := strconv.Atoi(parts[1]); err == nil {
			out.HoursBack = analytics.NormalizeHoursBack(h)
		}
	}
	return out, nil
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("tracking ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tracking ID %q", s)
	}
	return id, nil
}

// ParseIntervalArgs extracts a tracking ID and interval in minutes.
func ParseIntervalArgs(args string) (int64, int, error) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("usage: /interval <id> <minutes>")
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid tracking ID %q", parts[0])
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil || mins < minIntervalMinutes || mins > maxIntervalMinutes {
		return 0, 0, fmt.Errorf("interval must be between %d and %d minutes", minIntervalMinutes, maxIntervalMinutes)
	}
	return id, mins, nil
}
