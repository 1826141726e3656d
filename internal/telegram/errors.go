package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/tgerr"

	"tg_analytics/internal/model"
)

// mapError translates RPC errors into the model error kinds.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return &model.RateLimitError{RetryAfter: d}
	}
	switch {
	case tgerr.Is(err, "CHANNEL_PRIVATE", "CHANNEL_PUBLIC_GROUP_NA", "CHAT_ADMIN_REQUIRED", "USER_BANNED_IN_CHANNEL"):
		return fmt.Errorf("%w: %w", model.ErrAccessDenied, err)
	case tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID", "CHANNEL_INVALID", "PEER_ID_INVALID"):
		return fmt.Errorf("%w: %w", model.ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", model.ErrUpstream, err)
	}
}

func isRateLimit(err error) bool {
	return errors.Is(err, model.ErrRateLimited)
}
