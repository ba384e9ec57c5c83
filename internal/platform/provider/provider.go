// Package provider builds the generation.Client selected by configuration.
package provider

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gnicolai/AI-Courses-Generator/internal/config"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/deepseek"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/gemini"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/mock"
	"github.com/gnicolai/AI-Courses-Generator/internal/platform/openai"
	"github.com/gnicolai/AI-Courses-Generator/internal/retry"
	"golang.org/x/time/rate"
)

// Options are the collaborators shared by every provider.
type Options struct {
	// Preferences persists model substitutions made by the OpenAI fallback.
	Preferences config.PreferenceWriter

	// Timeouts overrides the per-operation ceilings; zero fields use the defaults.
	Timeouts generation.Timeouts

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// ExpansionBackoff spaces expansion attempts: 1s, then doubling, with jitter.
func ExpansionBackoff() retry.Policy {
	return retry.Policy{InitialDelay: time.Second, Factor: 2, Jitter: true}
}

// New returns the client for cfg.Provider. A provider without an API key, or
// an unknown provider, falls back to the mock client with a warning.
func New(ctx context.Context, cfg config.LLMConfig, opts Options) (generation.Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == string(generation.ProviderMock) {
		return mock.New(logger), nil
	}

	settings := cfg.ProviderSettings(name)
	if strings.TrimSpace(settings.APIKey) == "" {
		logger.WarnContext(ctx, "Provider API key is not configured, using the mock client",
			"provider", name)
		return mock.New(logger), nil
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	switch generation.Provider(name) {
	case generation.ProviderOpenAI:
		client, err := openai.New(openai.Config{
			APIKey:           settings.APIKey,
			BaseURL:          settings.BaseURL,
			Model:            settings.Model,
			ModelsCacheTTL:   settings.ModelsCacheTTL,
			Timeouts:         opts.Timeouts,
			Retry:            retry.DefaultPolicy(),
			ExpansionBackoff: ExpansionBackoff(),
			Limiter:          limiter,
			HTTPClient:       opts.HTTPClient,
			Preferences:      opts.Preferences,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case generation.ProviderDeepSeek:
		client, err := deepseek.New(deepseek.Config{
			APIKey:           settings.APIKey,
			BaseURL:          settings.BaseURL,
			Model:            settings.Model,
			Timeouts:         opts.Timeouts,
			Retry:            retry.DefaultPolicy(),
			ExpansionBackoff: ExpansionBackoff(),
			Limiter:          limiter,
			HTTPClient:       opts.HTTPClient,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case generation.ProviderGemini:
		client, err := gemini.NewGeminiGenerator(ctx, gemini.Config{
			APIKey:           settings.APIKey,
			BaseURL:          settings.BaseURL,
			Model:            settings.Model,
			Timeouts:         opts.Timeouts,
			Retry:            retry.DefaultPolicy(),
			ExpansionBackoff: ExpansionBackoff(),
			Limiter:          limiter,
			HTTPClient:       opts.HTTPClient,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		logger.WarnContext(ctx, "Unknown provider, using the mock client", "provider", name)
		return mock.New(logger), nil
	}
}
