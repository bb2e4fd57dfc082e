package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/llm"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Embedder turns text into a normalized vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Counter resolves how many events a prompt asks for
type Counter interface {
	Extract(ctx context.Context, text string) (int, error)
}

// AssistantConfig holds the answer-path knobs
type AssistantConfig struct {
	Model        string
	Options      llm.Options
	Probes       int
	MaxHistory   int
	SystemPrompt string
}

// Answer is the assistant reply returned to clients
type Answer struct {
	Answer     string `json:"answer"`
	SessionKey string `json:"session_key"`
}

// AssistantService answers questions about events with retrieval-augmented generation
type AssistantService struct {
	embedder Embedder
	counter  Counter
	index    domain.EventIndex
	provider llm.Provider
	history  domain.HistoryStore
	cfg      AssistantConfig
}

// NewAssistantService creates a new assistant. history may be nil, which
// disables conversation tracking.
func NewAssistantService(
	embedder Embedder,
	counter Counter,
	index domain.EventIndex,
	provider llm.Provider,
	history domain.HistoryStore,
	cfg AssistantConfig,
) *AssistantService {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = llm.SystemPrompt
	}
	if cfg.MaxHistory < 0 {
		cfg.MaxHistory = 0
	}
	return &AssistantService{
		embedder: embedder,
		counter:  counter,
		index:    index,
		provider: provider,
		history:  history,
		cfg:      cfg,
	}
}

// Answer runs the full pipeline for one prompt. History is read before the
// completion and written only after it succeeds; the prompt and the answer
// are stored together, and a failure to store them fails the call.
func (s *AssistantService) Answer(ctx context.Context, prompt, sessionKey string) (*Answer, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt must not be empty", domain.ErrInvalidInput)
	}

	var (
		vec []float32
		k   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vec, err = s.embedder.Embed(gctx, prompt)
		return err
	})
	g.Go(func() error {
		var err error
		k, err = s.counter.Extract(gctx, prompt)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	events, err := s.index.SearchByEmbedding(ctx, vec, k, s.cfg.Probes)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	documents := make([]string, len(events))
	for i, e := range events {
		documents[i] = domain.FormatEvent(e)
	}

	var recent []domain.ChatMessage
	if s.history != nil && sessionKey != "" && s.cfg.MaxHistory > 0 {
		msgs, err := s.history.Get(ctx, sessionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		recent = domain.Tail(msgs, s.cfg.MaxHistory)
	}

	log.Debug().
		Int("k", k).
		Int("retrieved", len(events)).
		Int("history", len(recent)).
		Msg("Assembled assistant context")

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:    s.cfg.Model,
		Messages: llm.BuildMessages(s.cfg.SystemPrompt, llm.BuildContext(documents, recent), prompt),
		Options:  s.cfg.Options,
		Stream:   false,
	})
	if err != nil {
		return nil, err
	}
	answer := strings.TrimSpace(resp.Content)

	if s.history != nil && sessionKey != "" {
		err := s.history.AppendMany(ctx, sessionKey, []domain.ChatMessage{
			{Role: domain.RoleUser, Content: prompt},
			{Role: domain.RoleAssistant, Content: answer},
		})
		if err != nil {
			log.Error().Err(err).Str("session_key", sessionKey).Msg("Failed to store conversation turn")
			return nil, fmt.Errorf("failed to store history: %w", err)
		}
	}

	return &Answer{Answer: answer, SessionKey: sessionKey}, nil
}
