// Package deepseek implements generation.Client for the DeepSeek chat API,
// which speaks the OpenAI chat-completions wire format with a single model.
package deepseek

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/chat"
	"github.com/gnicolai/AI-Courses-Generator/internal/retry"
	"golang.org/x/time/rate"
)

const (
	DefaultModel   = "deepseek-chat"
	DefaultBaseURL = "https://api.deepseek.com"

	maxOutputTokens = 4000
	temperature     = 0.7
)

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	Timeouts         generation.Timeouts
	Retry            retry.Policy
	ExpansionBackoff retry.Policy
	Limiter          *rate.Limiter
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client is the DeepSeek implementation of generation.Client.
type Client struct {
	*generation.Pipeline
	chat  *chat.Client
	model string
}

var _ generation.Client = (*Client)(nil)

// New creates a Client. An empty API key is ErrInvalidConfig.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: deepseek API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chatClient, err := chat.New(chat.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		HTTPClient: cfg.HTTPClient,
		Limiter:    cfg.Limiter,
		Retry:      cfg.Retry,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{chat: chatClient, model: cfg.Model}
	c.Pipeline, err = generation.NewPipeline(generation.PipelineConfig{
		Provider:         generation.ProviderDeepSeek,
		Dialect:          markdown.DialectDeepSeek,
		Completer:        completer{c},
		Timeouts:         cfg.Timeouts,
		ExpansionBackoff: cfg.ExpansionBackoff,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Model returns the configured model.
func (c *Client) Model() string {
	return c.model
}

// VerifyAPIKey sends a ten-token completion.
func (c *Client) VerifyAPIKey(ctx context.Context) (*generation.KeyStatus, error) {
	status := c.chat.VerifyKey(ctx, c.model, c.Timeouts().Verify)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return status, nil
}

type completer struct {
	c *Client
}

// Complete retries transport failures for outlines and chapters and makes a
// single call for expansions.
func (p completer) Complete(ctx context.Context, comp generation.Completion) (*generation.Reply, error) {
	payload := generation.PrepareParams(p.c.model,
		generation.PrepareMessages(p.c.model, comp.System, comp.User),
		generation.Sampling{Temperature: temperature, TopP: 1, MaxTokens: maxOutputTokens})

	var (
		resp *chat.Response
		err  error
	)
	if comp.Op == generation.OpExpansion {
		resp, err = p.c.chat.Complete(ctx, payload, comp.Timeout)
	} else {
		resp, err = p.c.chat.CompleteWithRetry(ctx, payload, comp.Timeout)
	}
	if err != nil {
		return nil, err
	}
	return &generation.Reply{Text: resp.Text, Model: resp.Model}, nil
}
