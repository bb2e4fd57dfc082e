package llm

import (
	"context"

	"github.com/Rrens/event-assistant/internal/domain"
)

// Message is one role-tagged chat message sent to a model
type Message struct {
	Role    domain.MessageRole
	Content string
}

// Options holds sampling parameters for a completion
type Options struct {
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	MaxTokens        int
}

// CompletionRequest contains chat completion parameters
type CompletionRequest struct {
	Model    string
	Messages []Message
	Options  Options
	// Stream is always false; providers reject streaming requests
	Stream bool
}

// Completion contains the model output
type Completion struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete runs a non-streaming chat completion
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// SplitSystem separates system messages from the conversation for
// providers that take the system prompt as a dedicated field.
func SplitSystem(msgs []Message) (system string, rest []Message) {
	for _, m := range msgs {
		if m.Role == domain.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
