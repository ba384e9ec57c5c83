package openai

import (
	"context"
	"slices"
	"strings"
	"time"
)

// AcceptableModels are the models the fallback chain may use, best first.
var AcceptableModels = []string{"o1-preview", "o1", "gpt-4o-1", "gpt-4o", "gpt-4-turbo", "gpt-4"}

// EmergencyModels are tried, in order, after every acceptable model failed.
var EmergencyModels = []string{"o3-mini", "gpt-4-vision-preview"}

const (
	// DefaultModel is used when no preference is configured.
	DefaultModel = "o1-preview"

	maxFallbackModels = 5
	probeTimeout      = 10 * time.Second
	modelsCacheKey    = "models"
)

// NormalizeModel maps a configured preference to the model requested first.
// "o1" is promoted to "o1-preview".
func NormalizeModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" || model == "o1" {
		return DefaultModel
	}
	return model
}

// rankModels returns the acceptable models present in available, in
// AcceptableModels order, which puts o1-preview and then o1 first.
func rankModels(available []string) []string {
	ranked := make([]string, 0, len(AcceptableModels))
	for _, m := range AcceptableModels {
		if slices.Contains(available, m) {
			ranked = append(ranked, m)
		}
	}
	return ranked
}

// availableModels returns the account's model IDs. Probes are cached for the
// configured TTL and concurrent probes share a single request.
func (f *fallbackCompleter) availableModels(ctx context.Context) ([]string, error) {
	if f.modelsCache != nil {
		if cached, ok := f.modelsCache.Get(modelsCacheKey); ok {
			return cached.([]string), nil
		}
	}

	v, err, shared := f.probes.Do(modelsCacheKey, func() (any, error) {
		ids, err := f.chat.ListModels(ctx, probeTimeout)
		if err != nil {
			return nil, err
		}
		if f.modelsCache != nil {
			f.modelsCache.SetDefault(modelsCacheKey, ids)
		}
		f.logger.InfoContext(ctx, "Probed available models", "count", len(ids))
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		f.logger.DebugContext(ctx, "Joined in-flight model probe")
	}
	return v.([]string), nil
}
