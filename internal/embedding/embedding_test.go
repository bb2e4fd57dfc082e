package embedding_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string  { return "mock" }
func (m *MockProvider) Model() string { return "mock-embed" }

func (m *MockProvider) Embed(ctx context.Context, text string, dimension int) ([]float32, error) {
	args := m.Called(ctx, text, dimension)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]float32
}

func (c *mapCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = vec
	return nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestService_Embed(t *testing.T) {
	ctx := context.Background()

	t.Run("returns unit vector of configured dimension", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Embed", ctx, "jazz night", 4).Return([]float32{3, 0, 4, 0}, nil)

		svc := embedding.NewService(p, 4)
		vec, err := svc.Embed(ctx, "  jazz night  ")

		require.NoError(t, err)
		assert.Len(t, vec, 4)
		assert.InDelta(t, 1.0, norm(vec), 1e-6)
		assert.InDelta(t, 0.6, vec[0], 1e-6)
		assert.InDelta(t, 0.8, vec[2], 1e-6)
		p.AssertExpectations(t)
	})

	t.Run("empty input is invalid", func(t *testing.T) {
		p := new(MockProvider)
		svc := embedding.NewService(p, 4)

		_, err := svc.Embed(ctx, "   ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		p.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("zero vector is degenerate", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Embed", ctx, "nothing", 3).Return([]float32{0, 0, 0}, nil)

		_, err := embedding.NewService(p, 3).Embed(ctx, "nothing")
		assert.ErrorIs(t, err, domain.ErrDegenerateVector)
	})

	t.Run("dimension mismatch is a provider error", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Embed", ctx, "short", 4).Return([]float32{1, 2}, nil)

		_, err := embedding.NewService(p, 4).Embed(ctx, "short")
		var pe *domain.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, domain.ProviderEmbedding, pe.Kind)
		assert.Equal(t, http.StatusBadGateway, pe.Status)
	})

	t.Run("transport failure is wrapped as provider error", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Embed", ctx, "x", 2).Return(nil, errors.New("dial tcp: refused"))

		_, err := embedding.NewService(p, 2).Embed(ctx, "x")
		var pe *domain.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, http.StatusBadGateway, pe.Status)
	})

	t.Run("cache short-circuits provider", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Embed", ctx, "cached", 2).Return([]float32{1, 1}, nil).Once()

		svc := embedding.NewService(p, 2).WithCache(&mapCache{data: map[string][]float32{}}, time.Minute)
		first, err := svc.Embed(ctx, "cached")
		require.NoError(t, err)
		second, err := svc.Embed(ctx, "cached")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		p.AssertNumberOfCalls(t, "Embed", 1)
	})
}

func TestNormalize_UnitLength(t *testing.T) {
	inputs := [][]float32{
		{1},
		{1e-20, 1e-20},
		{-5, 12},
		{1e10, -1e10, 3},
		{0.1, 0.2, 0.3, 0.4, 0.5},
	}
	for _, in := range inputs {
		out, err := embedding.Normalize(in)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, norm(out), 1e-6, "input %v", in)
		assert.Len(t, out, len(in))
	}
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, embedding.CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, embedding.CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2.0, embedding.CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 2.0, embedding.CosineDistance([]float32{1}, []float32{1, 2}))
}
