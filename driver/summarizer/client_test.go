package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	var received completionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  A summary.  "}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")

	summary, err := client.Summarize(context.Background(), "Article text", "en")
	require.NoError(t, err)
	assert.Equal(t, "A summary.", summary)

	assert.Equal(t, "test-model", received.Model)
	require.Len(t, received.Messages, 1)
	assert.Contains(t, received.Messages[0].Content, "Article text")
	assert.True(t, strings.HasPrefix(received.Messages[0].Content, "Summarize"))
}

func TestSummarizeUsesGermanPromptForGermanVariants(t *testing.T) {
	var received completionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Eine Zusammenfassung."}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")

	_, err := client.Summarize(context.Background(), "Artikeltext", "de-at")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(received.Messages[0].Content, "Fasse"))
}

func TestSummarizeEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")

	_, err := client.Summarize(context.Background(), "Article text", "en")
	assert.Error(t, err)
}

func TestSummarizeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")

	_, err := client.Summarize(context.Background(), "Article text", "en")
	assert.Error(t, err)
}
