package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tg_analytics/internal/model"
	"tg_analytics/internal/report"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func badRequest(c *gin.Context, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

// fail maps a service error to a status code and writes the error body.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	status, msg := http.StatusInternalServerError, "internal error"
	var rl *model.RateLimitError
	switch {
	case errors.As(err, &rl):
		status, msg = http.StatusTooManyRequests, "rate limited"
		c.Header("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())))
	case errors.Is(err, model.ErrNotFound):
		status, msg = http.StatusNotFound, "channel not found"
	case errors.Is(err, model.ErrAccessDenied):
		status, msg = http.StatusForbidden, "channel is private or inaccessible"
	case errors.Is(err, report.ErrNarrativeDisabled):
		status, msg = http.StatusServiceUnavailable, "narrative generation is not configured"
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, model.ErrUpstream):
		status, msg = http.StatusBadGateway, "upstream failure"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Details: err.Error()})
}
