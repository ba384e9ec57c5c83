// Package chat is the HTTP transport shared by the OpenAI-dialect and
// DeepSeek-dialect providers: a JSON chat-completions call, the /v1/models
// listing and the minimal key check.
//
// Errors are classified for the layers above: 401 and 403 wrap
// generation.ErrAuthentication, other non-2xx statuses wrap
// generation.ErrGenerationFailed, transport failures wrap
// generation.ErrTransientFailure and undecodable bodies wrap
// generation.ErrInvalidResponse. Every status error also carries an
// *HTTPError with the code and the provider's message.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/redact"
	"github.com/gnicolai/AI-Courses-Generator/internal/retry"
	"golang.org/x/time/rate"
)

const (
	// DefaultChatPath is the chat-completions endpoint path.
	DefaultChatPath = "/v1/chat/completions"
	// DefaultModelsPath is the model listing endpoint path.
	DefaultModelsPath = "/v1/models"

	maxErrorBody = 1 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string

	// ChatPath and ModelsPath default to DefaultChatPath and DefaultModelsPath.
	ChatPath   string
	ModelsPath string

	// HTTPClient defaults to a client with dial and TLS handshake timeouts.
	// Per-call timeouts are applied through the request context.
	HTTPClient *http.Client

	// Limiter, when set, is waited on before every request.
	Limiter *rate.Limiter

	// Retry governs CompleteWithRetry and ListModels.
	Retry retry.Policy

	Logger *slog.Logger
}

// Client issues chat-completions requests against one provider.
type Client struct {
	baseURL    string
	apiKey     string
	chatPath   string
	modelsPath string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      retry.Policy
	logger     *slog.Logger
}

// New creates a Client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: chat base URL cannot be empty", generation.ErrInvalidConfig)
	}

	chatPath := cfg.ChatPath
	if chatPath == "" {
		chatPath = DefaultChatPath
	}
	modelsPath := cfg.ModelsPath
	if modelsPath == "" {
		modelsPath = DefaultModelsPath
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          20,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		chatPath:   chatPath,
		modelsPath: modelsPath,
		httpClient: httpClient,
		limiter:    cfg.Limiter,
		retry:      cfg.Retry,
		logger:     logger.With("component", "chat_client"),
	}, nil
}

// Response is a decoded chat-completions reply.
type Response struct {
	Text         string
	Model        string
	FinishReason string
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends one chat-completions request. payload is the request body
// as built by generation.PrepareParams. timeout bounds the whole call.
func (c *Client) Complete(ctx context.Context, payload map[string]any, timeout time.Duration) (*Response, error) {
	var out chatResponse
	if err := c.doJSON(ctx, timeout, http.MethodPost, c.chatPath, payload, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: reply has no choices", generation.ErrInvalidResponse)
	}

	model := out.Model
	if model == "" {
		model, _ = payload["model"].(string)
	}
	return &Response{
		Text:         out.Choices[0].Message.Content,
		Model:        model,
		FinishReason: out.Choices[0].FinishReason,
	}, nil
}

// CompleteWithRetry is Complete with transport failures retried under the
// client's retry policy. Status errors are returned on first occurrence.
func (c *Client) CompleteWithRetry(ctx context.Context, payload map[string]any, timeout time.Duration) (*Response, error) {
	policy := c.retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.WarnContext(ctx, "Chat request failed, retrying",
			"model", payload["model"],
			"attempt", attempt,
			"delay", delay,
			"error", redact.Error(err))
	}
	return retry.DoValue(ctx, policy, func(ctx context.Context) (*Response, error) {
		return c.Complete(ctx, payload, timeout)
	})
}

// ListModels returns the IDs of the models the API key can use.
func (c *Client) ListModels(ctx context.Context, timeout time.Duration) ([]string, error) {
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := retry.Do(ctx, c.retry, func(ctx context.Context) error {
		return c.doJSON(ctx, timeout, http.MethodGet, c.modelsPath, nil, &out)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// VerifyKeyPrompt is the message sent by VerifyKey.
const VerifyKeyPrompt = "Semplice test di connessione. Rispondi solo 'OK'."

// VerifyKey sends a minimal completion with model and reports the outcome.
// It never returns an error: every failure is described by the status.
func (c *Client) VerifyKey(ctx context.Context, model string, timeout time.Duration) *generation.KeyStatus {
	payload := generation.PrepareParams(model,
		generation.PrepareMessages(model, "", VerifyKeyPrompt),
		generation.Sampling{Temperature: 0, TopP: 1, MaxTokens: 10})

	_, err := c.Complete(ctx, payload, timeout)
	return KeyStatusFromError(err)
}

// KeyStatusFromError converts the result of a key-check call to a status.
func KeyStatusFromError(err error) *generation.KeyStatus {
	if err == nil {
		return &generation.KeyStatus{Valid: true, StatusCode: http.StatusOK, Message: generation.MessageKeyValid}
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.IsAuth() {
			return &generation.KeyStatus{
				Kind:       generation.KindAuthentication,
				StatusCode: httpErr.StatusCode,
				Message:    generation.MessageKeyInvalid,
			}
		}
		return &generation.KeyStatus{
			Kind:       generation.KindUnavailable,
			StatusCode: httpErr.StatusCode,
			Message:    fmt.Sprintf(generation.MessageKeyAPIError, redact.String(httpErr.Message)),
		}
	}

	// A 2xx with an unusable body still proves the key works.
	if errors.Is(err, generation.ErrInvalidResponse) {
		return &generation.KeyStatus{Valid: true, StatusCode: http.StatusOK, Message: generation.MessageKeyValid}
	}

	return &generation.KeyStatus{
		Kind:    generation.KindOf(err),
		Message: fmt.Sprintf(generation.MessageKeyUnreachable, redact.Error(err)),
	}
}

func (c *Client) doJSON(ctx context.Context, timeout time.Duration, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("%w: cannot encode request: %v", generation.ErrGenerationFailed, err)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: rate limiter: %w", generation.ErrTransientFailure, err)
		}
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("%w: cannot build request: %v", generation.ErrGenerationFailed, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		c.logger.WarnContext(ctx, "Provider returned an error status",
			"path", path,
			"status", resp.StatusCode,
			"message", redact.String(httpErr.Message),
			"duration", time.Since(start))
		if httpErr.IsAuth() {
			return fmt.Errorf("%w: %w", generation.ErrAuthentication, httpErr)
		}
		return fmt.Errorf("%w: %w", generation.ErrGenerationFailed, httpErr)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: cannot decode reply: %v", generation.ErrInvalidResponse, err)
	}

	c.logger.DebugContext(ctx, "Provider call completed",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))
	return nil
}

// transportError reports parent cancellation as-is and everything else as a
// transient failure that keeps the cause visible to retry.IsRetryable.
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", generation.ErrTransientFailure, err)
}

// errorMessage pulls the human-readable message out of an error body.
func errorMessage(raw []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Error) > 0 {
		var detailed struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body.Error, &detailed); err == nil && detailed.Message != "" {
			return detailed.Message
		}
		var plain string
		if err := json.Unmarshal(body.Error, &plain); err == nil && plain != "" {
			return plain
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
