package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/config"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/markdown"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/chat"
	"github.com/gnicolai/AI-Courses-Generator/internal/redact"
	"github.com/gnicolai/AI-Courses-Generator/internal/retry"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// User-facing messages.
const (
	WarningEmergencyModel = "Contenuto generato con modello di emergenza. La qualità potrebbe essere inferiore."

	MessageNoPremiumModels = "Impossibile generare contenuto con modelli di alta qualità. " +
		"Si consiglia di verificare la sottoscrizione OpenAI per accedere ai modelli premium (o1-preview, gpt-4o)."

	messageKeyPremium   = "Chiave API valida. Modelli di alta qualità disponibili: %s"
	messageKeyNoPremium = "La chiave API è valida, ma l'account non ha accesso ai modelli di alta qualità " +
		"necessari (o1-preview, o1, gpt-4o, gpt-4-turbo). Aggiorna il tuo account OpenAI per accedere a questi modelli."
)

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com"

	emergencyTimeout = 120 * time.Second
)

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string

	// Model is the preferred model; "o1" and "" become "o1-preview".
	Model string

	// ModelsCacheTTL is how long a /v1/models probe is reused. Zero probes
	// before every fallback walk.
	ModelsCacheTTL time.Duration

	Timeouts         generation.Timeouts
	Retry            retry.Policy
	ExpansionBackoff retry.Policy
	Limiter          *rate.Limiter
	HTTPClient       *http.Client

	// Preferences receives the substituted model when the preferred one is
	// not available to the account. Optional.
	Preferences config.PreferenceWriter

	Logger *slog.Logger
}

// Client is the OpenAI implementation of generation.Client.
type Client struct {
	*generation.Pipeline
	completer *fallbackCompleter
}

var _ generation.Client = (*Client)(nil)

// New creates a Client. An empty API key is ErrInvalidConfig.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
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

	fc := &fallbackCompleter{
		chat:      chatClient,
		prefs:     cfg.Preferences,
		preferred: NormalizeModel(cfg.Model),
		logger:    logger.With("component", "openai_fallback"),
	}
	if cfg.ModelsCacheTTL > 0 {
		fc.modelsCache = cache.New(cfg.ModelsCacheTTL, 2*cfg.ModelsCacheTTL)
	}

	pipeline, err := generation.NewPipeline(generation.PipelineConfig{
		Provider:         generation.ProviderOpenAI,
		Dialect:          markdown.DialectGeneric,
		Completer:        fc,
		Timeouts:         cfg.Timeouts,
		ExpansionBackoff: cfg.ExpansionBackoff,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{Pipeline: pipeline, completer: fc}, nil
}

// PreferredModel returns the model the fallback chain starts from.
func (c *Client) PreferredModel() string {
	return c.completer.preferredModel()
}

// VerifyAPIKey lists the account's models and reports which high-tier models
// it can use. A valid key without high-tier access is reported as invalid
// with KindCapacity.
func (c *Client) VerifyAPIKey(ctx context.Context) (*generation.KeyStatus, error) {
	ids, err := c.completer.chat.ListModels(ctx, c.Timeouts().Verify)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return chat.KeyStatusFromError(err), nil
	}

	var premium []string
	for _, id := range ids {
		for _, prefix := range []string{"o1-preview", "o1", "gpt-4o", "gpt-4-turbo"} {
			if strings.HasPrefix(id, prefix) {
				premium = append(premium, id)
				break
			}
		}
	}
	if len(premium) == 0 {
		return &generation.KeyStatus{
			Kind:       generation.KindCapacity,
			StatusCode: http.StatusOK,
			Message:    messageKeyNoPremium,
		}, nil
	}
	return &generation.KeyStatus{
		Valid:      true,
		StatusCode: http.StatusOK,
		Message:    fmt.Sprintf(messageKeyPremium, strings.Join(premium, ", ")),
	}, nil
}

// fallbackCompleter implements generation.Completer over the fallback chain.
type fallbackCompleter struct {
	chat        *chat.Client
	prefs       config.PreferenceWriter
	modelsCache *cache.Cache
	probes      singleflight.Group
	logger      *slog.Logger

	mu        sync.RWMutex
	preferred string
}

func (f *fallbackCompleter) preferredModel() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.preferred
}

// Complete sends c to the preferred model for expansions and through the
// fallback chain for everything else.
func (f *fallbackCompleter) Complete(ctx context.Context, c generation.Completion) (*generation.Reply, error) {
	if c.Op == generation.OpExpansion {
		model := f.preferredModel()
		resp, err := f.chat.Complete(ctx, request(model, c), c.Timeout)
		if err != nil {
			return nil, err
		}
		return &generation.Reply{Text: resp.Text, Model: resp.Model}, nil
	}

	models, available, err := f.candidates(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	if len(models) > 0 {
		preferred := f.preferredModel()
		start := slices.Index(models, preferred)
		switch {
		case start >= 0:
		case available != nil:
			start = 0
			f.substitute(ctx, models[0])
		default:
			// Without a probe nothing proves the preference is gone.
			start = 0
			models = append([]string{preferred}, models...)
		}

		attempts := min(maxFallbackModels, len(models))
		for i := 0; i < attempts; i++ {
			model := models[(start+i)%len(models)]
			resp, err := f.chat.CompleteWithRetry(ctx, request(model, c), c.Timeout)
			if err == nil {
				if i > 0 {
					f.logger.InfoContext(ctx, "Fallback model succeeded", "model", model, "op", c.Op)
				}
				return &generation.Reply{Text: resp.Text, Model: resp.Model}, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, generation.ErrAuthentication) {
				return nil, err
			}

			f.logger.WarnContext(ctx, "Model failed, trying next",
				"model", model,
				"op", c.Op,
				"error", redact.Error(err))
			lastErr = err
		}
	}

	return f.emergency(ctx, c, available, lastErr)
}

// candidates returns the ranked fallback chain and the probed model set.
// When the probe fails the unfiltered list is used and the set is nil.
func (f *fallbackCompleter) candidates(ctx context.Context) ([]string, map[string]bool, error) {
	ids, err := f.availableModels(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if errors.Is(err, generation.ErrAuthentication) {
			return nil, nil, err
		}
		f.logger.WarnContext(ctx, "Model probe failed, using the full model list",
			"error", redact.Error(err))
		return slices.Clone(AcceptableModels), nil, nil
	}

	available := make(map[string]bool, len(ids))
	for _, id := range ids {
		available[id] = true
	}
	ranked := rankModels(ids)
	if len(ranked) == 0 {
		f.logger.WarnContext(ctx, "No high-tier model is available to the account")
	}
	return ranked, available, nil
}

// substitute replaces the preferred model and persists the new preference.
func (f *fallbackCompleter) substitute(ctx context.Context, model string) {
	f.mu.Lock()
	previous := f.preferred
	f.preferred = model
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "Preferred model is not available, substituting",
		"previous", previous,
		"model", model)

	if f.prefs == nil {
		return
	}
	if err := f.prefs.SetPreferredModel(ctx, string(generation.ProviderOpenAI), model); err != nil {
		f.logger.ErrorContext(ctx, "Failed to persist preferred model",
			"model", model,
			"error", err)
	}
}

// emergency tries the emergency models the probe listed. Without a usable
// one the request fails with ErrCapacity.
func (f *fallbackCompleter) emergency(
	ctx context.Context,
	c generation.Completion,
	available map[string]bool,
	lastErr error,
) (*generation.Reply, error) {
	for _, model := range EmergencyModels {
		if !available[model] {
			continue
		}

		f.logger.WarnContext(ctx, "Trying emergency model", "model", model, "op", c.Op)
		resp, err := f.chat.Complete(ctx, emergencyRequest(model, c), emergencyTimeout)
		if err == nil {
			return &generation.Reply{Text: resp.Text, Model: resp.Model, Warning: WarningEmergencyModel}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	if lastErr != nil {
		f.logger.ErrorContext(ctx, "Every model failed",
			"op", c.Op,
			"last_error", redact.Error(lastErr))
	}
	return nil, fmt.Errorf("%w: %s", generation.ErrCapacity, MessageNoPremiumModels)
}

func request(model string, c generation.Completion) map[string]any {
	return generation.PrepareParams(model,
		generation.PrepareMessages(model, c.System, c.User),
		generation.DefaultSampling())
}

func emergencyRequest(model string, c generation.Completion) map[string]any {
	messages := make([]generation.Message, 0, 2)
	if c.System != "" {
		messages = append(messages, generation.Message{Role: "system", Content: c.System})
	}
	messages = append(messages, generation.Message{Role: "user", Content: c.User})

	payload := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": 0.7,
		"max_tokens":  4000,
	}
	if model == "o3-mini" {
		payload["reasoning_effort"] = "high"
	}
	return payload
}
