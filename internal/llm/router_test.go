package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       string
	configured bool
}

func (s stubProvider) Name() string              { return s.name }
func (s stubProvider) AvailableModels() []string { return []string{s.name + "-model"} }
func (s stubProvider) DefaultModel() string      { return s.name + "-model" }
func (s stubProvider) IsConfigured() bool        { return s.configured }
func (s stubProvider) Complete(context.Context, CompletionRequest) (*Completion, error) {
	return &Completion{}, nil
}

func TestRouter(t *testing.T) {
	r := NewRouter("openai")
	r.Register(stubProvider{name: "openai", configured: true})
	r.Register(stubProvider{name: "anthropic", configured: false})
	r.Register(stubProvider{name: "ollama", configured: true})

	p, err := r.Select("")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "openai", r.Primary())

	_, err = r.Select("anthropic")
	assert.ErrorContains(t, err, "not configured")

	_, err = r.Select("gemini")
	assert.ErrorContains(t, err, "not found")

	assert.Equal(t, []string{"ollama", "openai"}, r.Configured())

	backends := r.Describe()
	require.Len(t, backends, 3)
	assert.Equal(t, "anthropic", backends[0].Name)
	assert.False(t, backends[0].Configured)
	assert.True(t, backends[2].Primary)
	assert.Equal(t, []string{"openai-model"}, backends[2].Models)
}

func TestRouter_EmptyPrimaryUnset(t *testing.T) {
	r := NewRouter("")
	assert.Empty(t, r.Configured())

	_, err := r.Select("")
	assert.ErrorContains(t, err, "not found")
}
