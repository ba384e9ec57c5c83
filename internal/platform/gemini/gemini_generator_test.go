package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// geminiServer answers generateContent calls with status and, on success, a
// single candidate carrying text and finishReason.
func geminiServer(t *testing.T, status int, text, finishReason string, calls *atomic.Int32) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": status, "message": "request rejected", "status": "ERROR"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": finishReason,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestGenerator(t *testing.T, url string) *GeminiGenerator {
	t.Helper()
	g, err := NewGeminiGenerator(context.Background(), Config{APIKey: "AIza-test", BaseURL: url})
	require.NoError(t, err)
	return g
}

func TestNewGeminiGeneratorRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewGeminiGenerator(context.Background(), Config{})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestGenerateChapterContent(t *testing.T) {
	t.Parallel()

	url := geminiServer(t, http.StatusOK, "# Introduzione\n\nTesto del capitolo.", "STOP", nil)
	g := newTestGenerator(t, url)
	assert.Equal(t, DefaultModel, g.Model())
	assert.Equal(t, generation.ProviderGemini, g.Provider())

	outline := &domain.Outline{Chapters: []domain.Chapter{{ID: "cap1", Title: "Introduzione"}}}
	res, err := g.GenerateChapterContent(context.Background(), domain.CourseParams{Title: "Corso"}, outline, "cap1", nil)
	require.NoError(t, err)
	assert.Equal(t, "# Introduzione\n\nTesto del capitolo.\n", res.Content)
	assert.Equal(t, DefaultModel, res.Model)
}

func TestCompleteSafetyBlock(t *testing.T) {
	t.Parallel()

	url := geminiServer(t, http.StatusOK, "", string(genai.FinishReasonSafety), nil)
	g := newTestGenerator(t, url)

	_, err := g.Complete(context.Background(), generation.Completion{Op: generation.OpChapter, User: "x"})
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
}

func TestCompleteStatusError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	url := geminiServer(t, http.StatusInternalServerError, "", "", &calls)
	g := newTestGenerator(t, url)

	_, err := g.Complete(context.Background(), generation.Completion{Op: generation.OpOutline, User: "x"})
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.Equal(t, generation.KindUnavailable, generation.KindOf(err))
	assert.Positive(t, calls.Load())
}

func TestVerifyAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		valid  bool
		kind   generation.Kind
	}{
		{"valid", http.StatusOK, true, generation.KindNone},
		{"unauthorized", http.StatusUnauthorized, false, generation.KindAuthentication},
		{"server error", http.StatusInternalServerError, false, generation.KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := geminiServer(t, tt.status, "OK", "STOP", nil)
			g := newTestGenerator(t, url)

			status, err := g.VerifyAPIKey(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.valid, status.Valid)
			assert.Equal(t, tt.kind, status.Kind)
		})
	}
}

func TestKeyStatusInvalidArgumentKey(t *testing.T) {
	t.Parallel()

	status := keyStatus(genai.APIError{Code: http.StatusBadRequest, Message: "API key not valid. Please pass a valid API key."})
	assert.False(t, status.Valid)
	assert.Equal(t, generation.KindAuthentication, status.Kind)
	assert.Equal(t, generation.MessageKeyInvalid, status.Message)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.ErrorIs(t, classify(ctx, genai.APIError{Code: http.StatusForbidden}), generation.ErrAuthentication)
	assert.ErrorIs(t, classify(ctx, genai.APIError{Code: http.StatusTooManyRequests}), generation.ErrGenerationFailed)
	assert.ErrorIs(t, classify(ctx, context.DeadlineExceeded), generation.ErrTransientFailure)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, classify(canceled, genai.APIError{Code: 500}), context.Canceled)
}
