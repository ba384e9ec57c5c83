package generation

import "strings"

// Capability describes how a model's chat dialect differs from the standard
// one.
type Capability struct {
	SupportsSystemRole       bool
	TokenLimitField          string
	SupportsTemperature      bool
	SupportsTopP             bool
	SupportsPresencePenalty  bool
	SupportsFrequencyPenalty bool
	MaxContextLength         int
	DefaultOutputLimit       int
}

// Token limit field names.
const (
	FieldMaxTokens           = "max_tokens"
	FieldMaxCompletionTokens = "max_completion_tokens"
)

var reasoningDialect = Capability{
	SupportsSystemRole: false,
	TokenLimitField:    FieldMaxCompletionTokens,
	MaxContextLength:   128000,
	DefaultOutputLimit: 8000,
}

// capabilities is keyed by model name prefix.
var capabilities = map[string]Capability{
	"o1-preview": reasoningDialect,
	"o1":         reasoningDialect,
	"o1-mini": {
		SupportsSystemRole: false,
		TokenLimitField:    FieldMaxCompletionTokens,
		MaxContextLength:   32000,
		DefaultOutputLimit: 4000,
	},
}

var standardDialect = Capability{
	SupportsSystemRole:       true,
	TokenLimitField:          FieldMaxTokens,
	SupportsTemperature:      true,
	SupportsTopP:             true,
	SupportsPresencePenalty:  true,
	SupportsFrequencyPenalty: true,
	MaxContextLength:         8192,
	DefaultOutputLimit:       4000,
}

// LookupCapability returns the entry with the longest prefix of model, or the
// standard dialect when none matches.
func LookupCapability(model string) Capability {
	best := ""
	for prefix := range capabilities {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return standardDialect
	}
	return capabilities[best]
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PrepareMessages builds the message list for model. Without system-role
// support the system text is folded into the user turn. An empty system text
// produces a single user message.
func PrepareMessages(model, system, user string) []Message {
	if system == "" {
		return []Message{{Role: "user", Content: user}}
	}
	if LookupCapability(model).SupportsSystemRole {
		return []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		}
	}
	return []Message{{Role: "user", Content: system + "\n\n" + user}}
}

// Sampling holds the requested sampling parameters. A zero MaxTokens uses
// the model's default output limit.
type Sampling struct {
	Temperature      float64
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64
	MaxTokens        int
}

// DefaultSampling returns temperature 0.7, top_p 0.95 and no penalties.
func DefaultSampling() Sampling {
	return Sampling{Temperature: 0.7, TopP: 0.95}
}

// PrepareParams builds a chat completion request body for model. Sampling
// fields the model rejects are left out and the output limit goes under the
// field name the model expects.
func PrepareParams(model string, messages []Message, s Sampling) map[string]any {
	c := LookupCapability(model)

	limit := s.MaxTokens
	if limit <= 0 {
		limit = c.DefaultOutputLimit
	}

	params := map[string]any{
		"model":           model,
		"messages":        messages,
		c.TokenLimitField: limit,
	}
	if c.SupportsTemperature {
		params["temperature"] = s.Temperature
	}
	if c.SupportsTopP {
		params["top_p"] = s.TopP
	}
	if c.SupportsPresencePenalty {
		params["presence_penalty"] = s.PresencePenalty
	}
	if c.SupportsFrequencyPenalty {
		params["frequency_penalty"] = s.FrequencyPenalty
	}
	return params
}
