package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", fmt.Errorf("%w: bad date", domain.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"event missing", domain.ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
		{"guest missing", domain.ErrUserNotInEvent, http.StatusNotFound, "USER_NOT_IN_EVENT"},
		{"duplicate title", domain.ErrEventAlreadyExists, http.StatusConflict, "EVENT_ALREADY_EXISTS"},
		{"conflict", domain.ErrConcurrencyConflict, http.StatusConflict, "CONCURRENT_UPDATE"},
		{"count", fmt.Errorf("%w: no digits", domain.ErrCountExtraction), http.StatusBadGateway, "COUNT_EXTRACTION_ERROR"},
		{"degenerate", domain.ErrDegenerateVector, http.StatusBadGateway, "DEGENERATE_VECTOR"},
		{
			"embedding rejected",
			domain.NewProviderError(domain.ProviderEmbedding, "openai", http.StatusBadRequest, errors.New("secret detail")),
			http.StatusBadRequest, "EMBEDDING_SERVICE_ERROR",
		},
		{
			"completion unavailable",
			domain.NewProviderError(domain.ProviderCompletion, "openai", 0, errors.New("dial tcp 10.0.0.5: secret detail")),
			http.StatusBadGateway, "COMPLETION_SERVICE_ERROR",
		},
		{
			"save failure",
			domain.WrapPersistence("event", domain.OpSave, errors.New("pq: secret detail")),
			http.StatusInternalServerError, "EVENT_SAVE_ERROR",
		},
		{
			"delete failure",
			domain.WrapPersistence("user", domain.OpDelete, errors.New("pq: secret detail")),
			http.StatusInternalServerError, "USER_DELETE_ERROR",
		},
		{"unknown", errors.New("secret detail"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "secret detail")
		})
	}
}

func TestFromError_FixedMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			"embedding",
			domain.NewProviderError(domain.ProviderEmbedding, "openai", http.StatusBadGateway, errors.New("key sk-123 rejected")),
			"embedding service request failed",
		},
		{
			"completion",
			domain.NewProviderError(domain.ProviderCompletion, "anthropic", 0, errors.New("key sk-123 rejected")),
			"completion service request failed",
		},
		{
			"persistence",
			domain.WrapPersistence("guest", domain.OpSave, errors.New("conn 10.0.0.5 sk-123 refused")),
			"failed to save guest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FromError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.NotContains(t, rec.Body.String(), "sk-123")

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.message, resp.Error.Message)
		})
	}
}
