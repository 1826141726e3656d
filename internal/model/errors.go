package model

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds returned by the message source and the analysis pipeline.
var (
	ErrNotFound       = errors.New("channel not found")
	ErrAccessDenied   = errors.New("channel is private or inaccessible")
	ErrRateLimited    = errors.New("rate limited")
	ErrNoDataInPeriod = errors.New("no posts in the selected period")
	ErrUpstream       = errors.New("upstream failure")
)

// RateLimitError reports a flood wait from the message source.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", int(e.RetryAfter.Seconds()))
}

// Is makes errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// NoDataError reports an empty analysis window together with what is known about the channel.
type NoDataError struct {
	Channel       ChannelInfo
	Period        Period
	LastMessageAt *time.Time
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s: %d hours", ErrNoDataInPeriod, e.Period.HoursBack)
}

func (e *NoDataError) Unwrap() error {
	return ErrNoDataInPeriod
}
