package service

import (
	"context"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/llm"
	"github.com/rs/zerolog/log"
)

// CountExtractor asks a completion model how many events the user wants
type CountExtractor struct {
	provider llm.Provider
	model    string
	opts     llm.Options
	defaultK int
	maxK     int
}

// NewCountExtractor creates a new count extractor. Non-positive limits fall
// back to 5.
func NewCountExtractor(provider llm.Provider, model string, opts llm.Options, defaultK, maxK int) *CountExtractor {
	if maxK <= 0 {
		maxK = 5
	}
	if defaultK <= 0 {
		defaultK = 5
	}
	if defaultK > maxK {
		defaultK = maxK
	}
	return &CountExtractor{
		provider: provider,
		model:    model,
		opts:     opts,
		defaultK: defaultK,
		maxK:     maxK,
	}
}

// Extract returns the requested number of events, at least 1 and at most
// the configured maximum. A reply that is not an integer fails with
// domain.ErrCountExtraction.
func (c *CountExtractor) Extract(ctx context.Context, text string) (int, error) {
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: domain.RoleSystem, Content: llm.CountExtractionPrompt(c.defaultK, c.maxK)},
			{Role: domain.RoleUser, Content: text},
		},
		Options: c.opts,
		Stream:  false,
	})
	if err != nil {
		return 0, err
	}

	n, err := llm.ParseCount(resp.Content)
	if err != nil {
		return 0, err
	}

	k := n
	switch {
	case k < 1:
		k = c.defaultK
	case k > c.maxK:
		k = c.maxK
	}
	log.Debug().Int("parsed", n).Int("k", k).Msg("Extracted event count")
	return k, nil
}
