// Package narrative turns a report into a free-text analysis written by an LLM.
package narrative

import (
	"context"
	"errors"
	"fmt"

	"tg_analytics/internal/config"
	"tg_analytics/internal/model"
)

// ErrNotConfigured is returned by New when the selected provider has no API key.
var ErrNotConfigured = errors.New("narrative provider is not configured")

// Request is the input of one narrative generation.
type Request struct {
	Report   *model.Report
	Settings *model.AISettings
}

// Generator produces narrative text for a report.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New builds the generator selected by cfg.NarrativeProvider.
func New(cfg *config.Config) (Generator, error) {
	switch cfg.NarrativeProvider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY: %w", ErrNotConfigured)
		}
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case config.ProviderOpenRouter, "":
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY: %w", ErrNotConfigured)
		}
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterModel), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.NarrativeProvider)
	}
}
