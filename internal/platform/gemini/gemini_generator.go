package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/redact"
	"github.com/gnicolai/AI-Courses-Generator/internal/retry"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.0-flash"

	temperature     = 0.7
	maxOutputTokens = 8000
)

// Config configures a GeminiGenerator.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini endpoint. Empty uses the SDK default.
	BaseURL string

	Timeouts         generation.Timeouts
	Retry            retry.Policy
	ExpansionBackoff retry.Policy
	Limiter          *rate.Limiter
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// GeminiGenerator implements the generation.Client interface using
// Google's Gemini API.
type GeminiGenerator struct {
	*generation.Pipeline

	logger  *slog.Logger
	client  *genai.Client
	model   string
	retry   retry.Policy
	limiter *rate.Limiter
}

var _ generation.Client = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a new instance of GeminiGenerator.
//
// Parameters:
//   - ctx: Context for the SDK client construction
//   - cfg: API key, model and call settings
//
// Returns:
//   - A properly initialized GeminiGenerator or an error wrapping
//     generation.ErrInvalidConfig if initialization fails
func NewGeminiGenerator(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	g := &GeminiGenerator{
		logger:  logger.With("component", "gemini"),
		client:  client,
		model:   cfg.Model,
		retry:   cfg.Retry,
		limiter: cfg.Limiter,
	}
	g.Pipeline, err = generation.NewPipeline(generation.PipelineConfig{
		Provider:         generation.ProviderGemini,
		Dialect:          markdown.DialectGeneric,
		Completer:        g,
		Timeouts:         cfg.Timeouts,
		ExpansionBackoff: cfg.ExpansionBackoff,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Complete implements generation.Completer. Outline and chapter calls retry
// transport failures; expansions make exactly one call.
func (g *GeminiGenerator) Complete(ctx context.Context, c generation.Completion) (*generation.Reply, error) {
	if c.Op == generation.OpExpansion {
		return g.generate(ctx, c, maxOutputTokens)
	}

	policy := g.retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		g.logger.WarnContext(ctx, "Gemini API call failed, retrying",
			"op", c.Op,
			"attempt", attempt,
			"delay", delay,
			"error", redact.Error(err))
	}
	return retry.DoValue(ctx, policy, func(ctx context.Context) (*generation.Reply, error) {
		return g.generate(ctx, c, maxOutputTokens)
	})
}

// generate makes a single GenerateContent call.
//
// Parameters:
//   - ctx: Parent context; c.Timeout bounds the call itself
//   - c: The completion to send
//   - maxTokens: Output token ceiling
//
// Returns:
//   - The reply text and model
//   - An error wrapping a generation sentinel if the call fails or the
//     content was blocked
func (g *GeminiGenerator) generate(ctx context.Context, c generation.Completion, maxTokens int32) (*generation.Reply, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, classify(ctx, err)
		}
	}

	callCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](temperature),
		MaxOutputTokens: maxTokens,
	}
	if c.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(c.System, genai.RoleUser)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(callCtx, g.model, genai.Text(c.User), cfg)
	if err != nil {
		g.logger.ErrorContext(ctx, "Gemini API call error",
			"op", c.Op,
			"error", redact.Error(err),
			"duration", time.Since(start))
		return nil, classify(ctx, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	g.logger.DebugContext(ctx, "Gemini API call successful",
		"op", c.Op,
		"duration", time.Since(start))

	model := resp.ModelVersion
	if model == "" {
		model = g.model
	}
	return &generation.Reply{Text: text, Model: model}, nil
}

// VerifyAPIKey sends a ten-token request and reports the outcome.
func (g *GeminiGenerator) VerifyAPIKey(ctx context.Context) (*generation.KeyStatus, error) {
	_, err := g.generate(ctx, generation.Completion{
		User:    "Semplice test di connessione. Rispondi solo 'OK'.",
		Timeout: g.Timeouts().Verify,
	}, 10)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return keyStatus(err), nil
}
