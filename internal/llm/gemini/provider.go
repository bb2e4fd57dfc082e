package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/event-assistant/internal/config"
	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/llm"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Provider struct {
	apiKey string
	model  string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemini-2.5-flash",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-flash"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

// Complete sends the conversation as a single generate call. System
// messages become the model's system instruction.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	model := req.Model
	if model == "" {
		model = p.DefaultModel()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderCompletion, "gemini", 0, fmt.Errorf("failed to create gemini client: %w", err))
	}
	defer client.Close()

	gm := client.GenerativeModel(model)
	gm.SetTemperature(float32(req.Options.Temperature))
	if req.Options.TopP > 0 {
		gm.SetTopP(float32(req.Options.TopP))
	}
	if req.Options.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.Options.MaxTokens))
	}

	system, rest := llm.SplitSystem(req.Messages)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	parts := make([]genai.Part, 0, len(rest))
	for _, m := range rest {
		parts = append(parts, genai.Text(m.Content))
	}

	start := time.Now()
	resp, err := gm.GenerateContent(ctx, parts...)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderCompletion, "gemini", 0, fmt.Errorf("gemini generation error: %w", err))
	}

	var output strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				output.WriteString(string(text))
			}
		}
	}

	tokensUsed := 0
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &llm.Completion{
		Content:    output.String(),
		Model:      model,
		TokensUsed: tokensUsed,
		LatencyMs:  latency,
	}, nil
}
