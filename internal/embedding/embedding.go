// Package embedding turns text into unit-length vectors of a fixed dimension.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/rs/zerolog/log"
)

// Provider calls an embedding model. dimension is the size the caller
// expects back; providers that support it pass it through to the model.
type Provider interface {
	Name() string
	Model() string
	Embed(ctx context.Context, text string, dimension int) ([]float32, error)
}

// Cache stores normalized vectors by key
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error
}

// Service validates input, calls the provider and normalizes the result
type Service struct {
	provider  Provider
	dimension int
	cache     Cache
	cacheTTL  time.Duration
}

// NewService creates a new embedding service
func NewService(provider Provider, dimension int) *Service {
	return &Service{provider: provider, dimension: dimension}
}

// WithCache enables caching of embeddings for identical input
func (s *Service) WithCache(cache Cache, ttl time.Duration) *Service {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// Dimension returns the configured vector size
func (s *Service) Dimension() int {
	return s.dimension
}

// Embed returns the unit-length embedding of text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text to embed must not be empty", domain.ErrInvalidInput)
	}

	key := s.cacheKey(text)
	if s.cache != nil {
		if vec, ok, err := s.cache.Get(ctx, key); err != nil {
			log.Warn().Err(err).Msg("Embedding cache lookup failed")
		} else if ok && len(vec) == s.dimension {
			return vec, nil
		}
	}

	raw, err := s.provider.Embed(ctx, text, s.dimension)
	if err != nil {
		var pe *domain.ProviderError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, domain.NewProviderError(domain.ProviderEmbedding, s.provider.Name(), 0, err)
	}

	if len(raw) != s.dimension {
		return nil, domain.NewProviderError(domain.ProviderEmbedding, s.provider.Name(), 0,
			fmt.Errorf("expected %d dimensions, got %d", s.dimension, len(raw)))
	}

	vec, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, vec, s.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("Embedding cache store failed")
		}
	}

	return vec, nil
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.provider.Model() + "\x00" + strconv.Itoa(s.dimension) + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Normalize scales vec to unit L2 norm. A zero vector cannot be normalized.
func Normalize(vec []float32) ([]float32, error) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, domain.ErrDegenerateVector
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

// CosineDistance returns 1 - cos(a, b). Vectors of different length are
// maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
