package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstep-fin/lockstep/internal/common"
)

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIProvider(Config{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestNewOpenAIProviderDefaults(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", provider.model)
	assert.Equal(t, "https://api.openai.com/v1", provider.baseURL)
}

func TestEmbed(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float64{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	vector, err := provider.Embed(context.Background(), "Acme Software Invoice")
	require.NoError(t, err)

	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "text-embedding-3-small", gotBody["model"])
	assert.Equal(t, "Acme Software Invoice", gotBody["input"])
}

func TestEmbedEmptyText(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{APIKey: "test-key"})
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, common.ErrEmbeddingProvider)
}

func TestEmbedRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, common.ErrEmbeddingRateLimit)
}

func TestEmbedAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream down"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, common.ErrEmbeddingProvider)
	assert.Contains(t, err.Error(), "status 500")
}

func TestEmbedEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, common.ErrEmbeddingProvider)
	assert.Contains(t, err.Error(), "no embedding returned")
}
