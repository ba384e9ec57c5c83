package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupCapability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model       string
		system      bool
		limitField  string
		temperature bool
		context     int
		output      int
	}{
		{"o1-preview", false, FieldMaxCompletionTokens, false, 128000, 8000},
		{"o1-preview-2024-09-12", false, FieldMaxCompletionTokens, false, 128000, 8000},
		{"o1-mini", false, FieldMaxCompletionTokens, false, 32000, 4000},
		{"o1-mini-2024-09-12", false, FieldMaxCompletionTokens, false, 32000, 4000},
		{"o1", false, FieldMaxCompletionTokens, false, 128000, 8000},
		{"gpt-4o", true, FieldMaxTokens, true, 8192, 4000},
		{"deepseek-chat", true, FieldMaxTokens, true, 8192, 4000},
		{"", true, FieldMaxTokens, true, 8192, 4000},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			c := LookupCapability(tt.model)
			assert.Equal(t, tt.system, c.SupportsSystemRole)
			assert.Equal(t, tt.limitField, c.TokenLimitField)
			assert.Equal(t, tt.temperature, c.SupportsTemperature)
			assert.Equal(t, tt.temperature, c.SupportsTopP)
			assert.Equal(t, tt.context, c.MaxContextLength)
			assert.Equal(t, tt.output, c.DefaultOutputLimit)
		})
	}
}

func TestPrepareMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
	}, PrepareMessages("gpt-4o", "sys", "hi"))

	assert.Equal(t, []Message{
		{Role: "user", Content: "sys\n\nhi"},
	}, PrepareMessages("o1-preview", "sys", "hi"))

	assert.Equal(t, []Message{
		{Role: "user", Content: "hi"},
	}, PrepareMessages("o1-preview", "", "hi"))
}

func TestPrepareParams(t *testing.T) {
	t.Parallel()

	msgs := []Message{{Role: "user", Content: "hi"}}

	reasoning := PrepareParams("o1-preview", msgs, DefaultSampling())
	assert.Equal(t, "o1-preview", reasoning["model"])
	assert.Equal(t, 8000, reasoning[FieldMaxCompletionTokens])
	assert.NotContains(t, reasoning, FieldMaxTokens)
	assert.NotContains(t, reasoning, "temperature")
	assert.NotContains(t, reasoning, "top_p")
	assert.NotContains(t, reasoning, "presence_penalty")
	assert.NotContains(t, reasoning, "frequency_penalty")

	standard := PrepareParams("gpt-4o", msgs, Sampling{Temperature: 0.2, TopP: 0.9, MaxTokens: 100})
	assert.Equal(t, 100, standard[FieldMaxTokens])
	assert.NotContains(t, standard, FieldMaxCompletionTokens)
	assert.Equal(t, 0.2, standard["temperature"])
	assert.Equal(t, 0.9, standard["top_p"])
	assert.Contains(t, standard, "presence_penalty")
	assert.Contains(t, standard, "frequency_penalty")
	assert.Equal(t, msgs, standard["messages"])
}
