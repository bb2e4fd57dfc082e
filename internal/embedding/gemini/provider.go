package gemini

import (
	"context"
	"fmt"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModel = "text-embedding-004"

// Provider embeds text with a Gemini embedding model. The model decides the
// output size (768), so config.Validate rejects any other configured dimension.
type Provider struct {
	client *genai.Client
	model  string
}

// NewProvider creates a new Gemini embedding provider
func NewProvider(ctx context.Context, apiKey, model string) (*Provider, error) {
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Provider{client: client, model: model}, nil
}

func (p *Provider) Name() string  { return "gemini" }
func (p *Provider) Model() string { return p.model }

// Close releases the underlying client
func (p *Provider) Close() error {
	return p.client.Close()
}

// Embed requests a single embedding
func (p *Provider) Embed(ctx context.Context, text string, _ int) ([]float32, error) {
	em := p.client.EmbeddingModel(p.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderEmbedding, "gemini", 0, fmt.Errorf("failed to embed content: %w", err))
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, domain.NewProviderError(domain.ProviderEmbedding, "gemini", 0, fmt.Errorf("received empty embedding"))
	}
	return res.Embedding.Values, nil
}
