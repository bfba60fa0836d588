package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant-be/pkg/llm/huggingface"
	"study-assistant-be/pkg/llm/ollama"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider("Ollama", "llama3", "", "")
	require.NoError(t, err)
	o, ok := p.(*ollama.OllamaProvider)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:11434", o.BaseURL)

	p, err = NewLLMProvider("hf", "qwen2.5", "", "key")
	require.NoError(t, err)
	assert.IsType(t, &huggingface.HuggingFaceProvider{}, p)
}

func TestNewLLMProvider_Rejects(t *testing.T) {
	tests := []struct {
		name, provider, model, key string
	}{
		{"unknown provider", "openai", "gpt", "k"},
		{"missing model", "ollama", " ", ""},
		{"huggingface without key", "huggingface", "qwen2.5", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMProvider(tt.provider, tt.model, "", tt.key)
			assert.Error(t, err)
		})
	}
}
