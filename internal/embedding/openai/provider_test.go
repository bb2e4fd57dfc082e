package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/embedding/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Embed(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	p := openai.NewProvider("openai", srv.URL+"/v1/", "sk-test", "text-embedding-3-large", time.Second)
	vec, err := p.Embed(context.Background(), "rooftop cinema", 3)

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "text-embedding-3-large", got["model"])
	assert.Equal(t, "rooftop cinema", got["input"])
	assert.Equal(t, float64(3), got["dimensions"])
	assert.Equal(t, "float", got["encoding_format"])
}

func TestProvider_EmbedStatusClass(t *testing.T) {
	tests := []struct {
		name     string
		upstream int
		want     int
	}{
		{"bad request stays client error", http.StatusBadRequest, http.StatusBadRequest},
		{"payload too large stays client error", http.StatusRequestEntityTooLarge, http.StatusBadRequest},
		{"unauthorized becomes bad gateway", http.StatusUnauthorized, http.StatusBadGateway},
		{"server error becomes bad gateway", http.StatusInternalServerError, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.upstream)
			}))
			defer srv.Close()

			p := openai.NewProvider("local", srv.URL, "", "m", time.Second)
			_, err := p.Embed(context.Background(), "x", 3)

			var pe *domain.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.want, pe.Status)
			assert.Equal(t, "local", pe.Provider)
		})
	}
}
