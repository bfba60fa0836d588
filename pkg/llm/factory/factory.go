package factory

import (
	"fmt"
	"strings"

	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/llm/huggingface"
	"study-assistant-be/pkg/llm/ollama"
)

const (
	ProviderOllama      = "ollama"
	ProviderHuggingFace = "huggingface"
)

// NewLLMProvider builds the generation backend named by LLM_PROVIDER. An empty
// baseURL selects the provider's default endpoint.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	if strings.TrimSpace(modelName) == "" {
		return nil, fmt.Errorf("LLM model name is required")
	}
	switch strings.ToLower(strings.TrimSpace(providerType)) {
	case ProviderOllama, "":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case ProviderHuggingFace, "hf":
		if apiKey == "" {
			return nil, fmt.Errorf("huggingface provider needs LLM_API_KEY")
		}
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
