package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// PreferenceWriter persists a provider's preferred model so that later
// requests start from the model that last worked.
type PreferenceWriter interface {
	SetPreferredModel(ctx context.Context, provider, model string) error
}

// PreferenceStore keeps model preferences in memory and, when a path is set,
// in the JSON settings file that Load merges at startup.
type PreferenceStore struct {
	mu     sync.RWMutex
	path   string
	models map[string]string
}

// NewPreferenceStore seeds the store from cfg. An empty cfg.SettingsFile
// keeps preferences in memory only.
func NewPreferenceStore(cfg LLMConfig) *PreferenceStore {
	return &PreferenceStore{
		path: cfg.SettingsFile,
		models: map[string]string{
			"openai":   cfg.OpenAI.Model,
			"deepseek": cfg.DeepSeek.Model,
			"gemini":   cfg.Gemini.Model,
		},
	}
}

// PreferredModel returns the current preference for provider.
func (s *PreferenceStore) PreferredModel(provider string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models[provider]
}

// SetPreferredModel records model for provider and rewrites the settings
// file. The in-memory value is updated even when the write fails.
func (s *PreferenceStore) SetPreferredModel(_ context.Context, provider, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.models[provider] = model
	if s.path == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigType("json")
	if _, err := os.Stat(s.path); err == nil {
		v.SetConfigFile(s.path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read settings file %s: %w", s.path, err)
		}
	}
	for p, m := range s.models {
		if m != "" {
			v.Set("llm."+p+".model", m)
		}
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", s.path, err)
	}
	return nil
}
