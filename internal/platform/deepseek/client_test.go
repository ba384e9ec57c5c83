package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func newServer(t *testing.T, rec *recorder, status int, reply string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, body)
		rec.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "Insufficient Balance"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "deepseek-chat",
			"choices": []map[string]any{{"message": map[string]string{"content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	c, err := New(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, generation.ProviderDeepSeek, c.Provider())
}

func TestGenerateChapterContentUsesDeepSeekDialect(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	url := newServer(t, rec, http.StatusOK, "#Titolo\n* primo\n* secondo")
	c, err := New(Config{APIKey: "sk-test", BaseURL: url})
	require.NoError(t, err)

	outline := &domain.Outline{Chapters: []domain.Chapter{{ID: "cap1", Title: "Titolo"}}}
	res, err := c.GenerateChapterContent(context.Background(), domain.CourseParams{Title: "Corso"}, outline, "cap1", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "# Titolo")
	assert.Contains(t, res.Content, "- primo")
	assert.Equal(t, "deepseek-chat", res.Model)

	require.Len(t, rec.bodies, 1)
	body := rec.bodies[0]
	assert.Equal(t, "deepseek-chat", body["model"])
	assert.EqualValues(t, 0.7, body["temperature"])
	assert.EqualValues(t, 4000, body["max_tokens"])
	assert.Len(t, body["messages"], 2)
}

func TestExpansionIsRetriedByPipelineOnly(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	url := newServer(t, rec, http.StatusInternalServerError, "")
	c, err := New(Config{
		APIKey:           "sk-test",
		BaseURL:          url,
		Retry:            retry.Policy{MaxAttempts: 3},
		ExpansionBackoff: retry.Policy{InitialDelay: time.Millisecond},
	})
	require.NoError(t, err)

	req := generation.NewExpansionRequest("testo", "Espandi: testo")
	req.MaxAttempts = 2
	_, err = c.GenerateExpandedContent(context.Background(), req)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.Len(t, rec.bodies, 2, "one call per pipeline attempt")
}

func TestVerifyAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		valid   bool
		message string
	}{
		{"valid", http.StatusOK, true, generation.MessageKeyValid},
		{"invalid", http.StatusUnauthorized, false, generation.MessageKeyInvalid},
		{"server error", http.StatusInternalServerError, false, "Errore nell'API: Insufficient Balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			url := newServer(t, rec, tt.status, "OK")
			c, err := New(Config{APIKey: "sk-test", BaseURL: url})
			require.NoError(t, err)

			status, err := c.VerifyAPIKey(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.valid, status.Valid)
			assert.Equal(t, tt.message, status.Message)
			assert.EqualValues(t, 10, rec.bodies[0]["max_tokens"])
		})
	}
}
