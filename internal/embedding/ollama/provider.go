package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
)

// Provider implements embedding.Provider against Ollama's /api/embed
type Provider struct {
	host   string
	model  string
	client *http.Client
}

// NewProvider creates a new Ollama embedding provider
func NewProvider(host, model string) *Provider {
	if model == "" {
		model = "mxbai-embed-large"
	}
	return &Provider{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *Provider) Name() string  { return "ollama" }
func (p *Provider) Model() string { return p.model }

type embedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed requests a single embedding
func (p *Provider) Embed(ctx context.Context, text string, dimension int) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: p.model, Input: text, Dimensions: dimension})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewProviderError(domain.ProviderEmbedding, "ollama", 0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError(domain.ProviderEmbedding, "ollama", resp.StatusCode,
			fmt.Errorf("ollama returned status %d", resp.StatusCode))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NewProviderError(domain.ProviderEmbedding, "ollama", 0, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(out.Embeddings) == 0 {
		return nil, domain.NewProviderError(domain.ProviderEmbedding, "ollama", 0, fmt.Errorf("no embedding in response"))
	}

	return out.Embeddings[0], nil
}
