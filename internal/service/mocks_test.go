package service

import (
	"context"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/llm"
	"github.com/stretchr/testify/mock"
)

// MockLLMProvider mocks llm.Provider
type MockLLMProvider struct {
	mock.Mock
}

func (m *MockLLMProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLLMProvider) AvailableModels() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockLLMProvider) DefaultModel() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLLMProvider) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockLLMProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Completion), args.Error(1)
}

// MockEmbedder mocks Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockCounter mocks Counter
type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) Extract(ctx context.Context, text string) (int, error) {
	args := m.Called(ctx, text)
	return args.Int(0), args.Error(1)
}

// MockEventIndex mocks domain.EventIndex
type MockEventIndex struct {
	mock.Mock
}

func (m *MockEventIndex) SearchByEmbedding(ctx context.Context, vec []float32, k, probes int) ([]domain.Event, error) {
	args := m.Called(ctx, vec, k, probes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

// MockHistoryStore mocks domain.HistoryStore
type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) Get(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

func (m *MockHistoryStore) Set(ctx context.Context, key string, messages []domain.ChatMessage) error {
	args := m.Called(ctx, key, messages)
	return args.Error(0)
}

func (m *MockHistoryStore) AppendMany(ctx context.Context, key string, messages []domain.ChatMessage) error {
	args := m.Called(ctx, key, messages)
	return args.Error(0)
}

func (m *MockHistoryStore) Append(ctx context.Context, key string, role domain.MessageRole, content string) error {
	args := m.Called(ctx, key, role, content)
	return args.Error(0)
}
