package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type assistantMocks struct {
	embedder *MockEmbedder
	counter  *MockCounter
	index    *MockEventIndex
	provider *MockLLMProvider
	history  *MockHistoryStore
}

func newAssistant() (*AssistantService, assistantMocks) {
	m := assistantMocks{
		embedder: new(MockEmbedder),
		counter:  new(MockCounter),
		index:    new(MockEventIndex),
		provider: new(MockLLMProvider),
		history:  new(MockHistoryStore),
	}
	svc := NewAssistantService(m.embedder, m.counter, m.index, m.provider, m.history, AssistantConfig{
		Model:        "test-model",
		Options:      llm.Options{Temperature: 0.2, TopP: 0.9, MaxTokens: 256},
		Probes:       10,
		MaxHistory:   5,
		SystemPrompt: "You answer about events.",
	})
	return svc, m
}

func sampleEvent() domain.Event {
	return domain.Event{
		ID:          uuid.New(),
		Title:       "Go Meetup",
		Description: "Talks about Go",
		Location:    "Skopje",
		Category:    "tech",
		Datetime:    time.Date(2025, 12, 25, 18, 0, 0, 0, time.UTC),
		Organizer:   &domain.User{Name: "Ann", Surname: "Lee", Email: "ann@example.com"},
	}
}

func TestAssistantService_Answer(t *testing.T) {
	ctx := context.Background()
	vec := []float32{1, 0}

	t.Run("success", func(t *testing.T) {
		svc, m := newAssistant()
		prompt := "show me two tech events"
		history := []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "h1"},
			{Role: domain.RoleAssistant, Content: "h2"},
		}

		m.embedder.On("Embed", mock.Anything, prompt).Return(vec, nil)
		m.counter.On("Extract", mock.Anything, prompt).Return(2, nil)
		m.index.On("SearchByEmbedding", ctx, vec, 2, 10).Return([]domain.Event{sampleEvent()}, nil)
		m.history.On("Get", ctx, "u1:c1").Return(history, nil)

		var sent llm.CompletionRequest
		m.provider.On("Complete", ctx, mock.Anything).
			Run(func(args mock.Arguments) { sent = args.Get(1).(llm.CompletionRequest) }).
			Return(&llm.Completion{Content: "  Go Meetup in Skopje  \n"}, nil)

		m.history.On("AppendMany", ctx, "u1:c1", []domain.ChatMessage{
			{Role: domain.RoleUser, Content: prompt},
			{Role: domain.RoleAssistant, Content: "Go Meetup in Skopje"},
		}).Return(nil).Once()

		got, err := svc.Answer(ctx, prompt, "u1:c1")
		require.NoError(t, err)
		assert.Equal(t, &Answer{Answer: "Go Meetup in Skopje", SessionKey: "u1:c1"}, got)

		require.Len(t, sent.Messages, 2)
		assert.False(t, sent.Stream)
		assert.Equal(t, "test-model", sent.Model)
		assert.Equal(t, 0.2, sent.Options.Temperature)
		assert.Equal(t, domain.RoleSystem, sent.Messages[0].Role)
		assert.True(t, strings.HasPrefix(sent.Messages[0].Content, "You answer about events.\n\nDOCUMENTS:\n"))
		assert.Contains(t, sent.Messages[0].Content,
			"Go Meetup | Talks about Go | Skopje | tech | 2025-12-25T18:00:00Z | Ann Lee, ann@example.com")
		assert.Contains(t, sent.Messages[0].Content, "RECENT MESSAGES (last 2):\nuser: h1\nassistant: h2")
		assert.Equal(t, llm.Message{Role: domain.RoleUser, Content: prompt}, sent.Messages[1])

		m.history.AssertExpectations(t)
	})

	t.Run("empty index uses marker", func(t *testing.T) {
		svc, m := newAssistant()
		m.embedder.On("Embed", mock.Anything, "anything?").Return(vec, nil)
		m.counter.On("Extract", mock.Anything, "anything?").Return(5, nil)
		m.index.On("SearchByEmbedding", ctx, vec, 5, 10).Return([]domain.Event{}, nil)
		m.history.On("Get", ctx, "u1").Return([]domain.ChatMessage{}, nil)
		m.provider.On("Complete", ctx, mock.MatchedBy(func(req llm.CompletionRequest) bool {
			return strings.HasSuffix(req.Messages[0].Content, "DOCUMENTS:\n"+llm.NoEventsMarker)
		})).Return(&llm.Completion{Content: "Nothing found."}, nil)
		m.history.On("AppendMany", ctx, "u1", mock.Anything).Return(nil)

		got, err := svc.Answer(ctx, "anything?", "u1")
		require.NoError(t, err)
		assert.Equal(t, "Nothing found.", got.Answer)
		m.provider.AssertExpectations(t)
	})

	t.Run("embedding failure leaves history untouched", func(t *testing.T) {
		svc, m := newAssistant()
		upstream := domain.NewProviderError(domain.ProviderEmbedding, "mock", 0, errors.New("timeout"))
		m.embedder.On("Embed", mock.Anything, "q").Return(nil, upstream)
		m.counter.On("Extract", mock.Anything, "q").Return(3, nil).Maybe()

		_, err := svc.Answer(ctx, "q", "u1")
		var pe *domain.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, domain.ProviderEmbedding, pe.Kind)

		m.history.AssertNotCalled(t, "AppendMany", mock.Anything, mock.Anything, mock.Anything)
		m.provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})

	t.Run("count extraction failure is fatal", func(t *testing.T) {
		svc, m := newAssistant()
		m.embedder.On("Embed", mock.Anything, "q").Return(vec, nil).Maybe()
		m.counter.On("Extract", mock.Anything, "q").Return(0, domain.ErrCountExtraction)

		_, err := svc.Answer(ctx, "q", "u1")
		assert.ErrorIs(t, err, domain.ErrCountExtraction)
		m.index.AssertNotCalled(t, "SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.history.AssertNotCalled(t, "AppendMany", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("completion failure leaves history untouched", func(t *testing.T) {
		svc, m := newAssistant()
		m.embedder.On("Embed", mock.Anything, "q").Return(vec, nil)
		m.counter.On("Extract", mock.Anything, "q").Return(1, nil)
		m.index.On("SearchByEmbedding", ctx, vec, 1, 10).Return([]domain.Event{}, nil)
		m.history.On("Get", ctx, "u1").Return([]domain.ChatMessage{}, nil)
		m.provider.On("Complete", ctx, mock.Anything).
			Return(nil, domain.NewProviderError(domain.ProviderCompletion, "mock", 429, errors.New("busy")))

		_, err := svc.Answer(ctx, "q", "u1")
		var pe *domain.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 502, pe.Status)
		m.history.AssertNotCalled(t, "AppendMany", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty completion is an empty answer", func(t *testing.T) {
		svc, m := newAssistant()
		m.embedder.On("Embed", mock.Anything, "q").Return(vec, nil)
		m.counter.On("Extract", mock.Anything, "q").Return(1, nil)
		m.index.On("SearchByEmbedding", ctx, vec, 1, 10).Return([]domain.Event{}, nil)
		m.history.On("Get", ctx, "u1").Return([]domain.ChatMessage{}, nil)
		m.provider.On("Complete", ctx, mock.Anything).Return(&llm.Completion{Content: ""}, nil)
		m.history.On("AppendMany", ctx, "u1", []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "q"},
			{Role: domain.RoleAssistant, Content: ""},
		}).Return(nil)

		got, err := svc.Answer(ctx, "q", "u1")
		require.NoError(t, err)
		assert.Equal(t, "", got.Answer)
	})

	t.Run("history write failure fails the call", func(t *testing.T) {
		svc, m := newAssistant()
		m.embedder.On("Embed", mock.Anything, "q").Return(vec, nil)
		m.counter.On("Extract", mock.Anything, "q").Return(1, nil)
		m.index.On("SearchByEmbedding", ctx, vec, 1, 10).Return([]domain.Event{}, nil)
		m.history.On("Get", ctx, "u1").Return([]domain.ChatMessage{}, nil)
		m.provider.On("Complete", ctx, mock.Anything).Return(&llm.Completion{Content: "ok"}, nil)
		storeErr := errors.New("redis down")
		m.history.On("AppendMany", ctx, "u1", mock.Anything).Return(storeErr)

		got, err := svc.Answer(ctx, "q", "u1")
		assert.ErrorIs(t, err, storeErr)
		assert.Nil(t, got)
		m.history.AssertNumberOfCalls(t, "AppendMany", 1)
		m.history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty prompt", func(t *testing.T) {
		svc, m := newAssistant()
		_, err := svc.Answer(ctx, "   ", "u1")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		m.embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
	})
}

func TestAssistantService_NoHistoryStore(t *testing.T) {
	ctx := context.Background()
	embedder, counter, index, provider := new(MockEmbedder), new(MockCounter), new(MockEventIndex), new(MockLLMProvider)
	svc := NewAssistantService(embedder, counter, index, provider, nil, AssistantConfig{MaxHistory: 5})

	embedder.On("Embed", mock.Anything, "q").Return([]float32{1}, nil)
	counter.On("Extract", mock.Anything, "q").Return(1, nil)
	index.On("SearchByEmbedding", ctx, []float32{1}, 1, 0).Return([]domain.Event{}, nil)
	provider.On("Complete", ctx, mock.MatchedBy(func(req llm.CompletionRequest) bool {
		return strings.HasPrefix(req.Messages[0].Content, strings.TrimSpace(llm.SystemPrompt))
	})).Return(&llm.Completion{Content: "fine"}, nil)

	got, err := svc.Answer(ctx, "q", "u1")
	require.NoError(t, err)
	assert.Equal(t, "fine", got.Answer)
}
