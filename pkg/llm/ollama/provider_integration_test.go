//go:build integration

// Runs against a local Ollama daemon: go test -tags integration ./pkg/llm/ollama/
package ollama

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant-be/pkg/llm"
)

func liveProvider(t *testing.T) *OllamaProvider {
	t.Helper()
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "llama3"
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/tags")
	if err != nil {
		t.Skipf("Ollama not reachable at %s: %v", baseURL, err)
	}
	resp.Body.Close()

	return NewOllamaProvider(baseURL, model)
}

func TestOllamaLive_Chat(t *testing.T) {
	p := liveProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	out, err := p.Chat(ctx, []llm.Message{
		{Role: "system", Content: "Answer with a single word."},
		{Role: "user", Content: "Which gas do plants absorb for photosynthesis?"},
	}, llm.WithTemperature(0))
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(out), "carbon")
}

func TestOllamaLive_ChatStream(t *testing.T) {
	p := liveProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var chunks []string
	out, err := p.ChatStream(ctx, []llm.Message{{Role: "user", Content: "Count from one to five in words."}},
		func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	assert.Equal(t, out, strings.Join(chunks, ""))
}

func TestOllamaLive_JSONFormat(t *testing.T) {
	p := liveProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	out, err := p.Generate(ctx, `Reply with {"intent": "answer_generation"} and nothing else.`, llm.WithJSONFormat(), llm.WithTemperature(0))
	require.NoError(t, err)
	assert.Contains(t, out, "answer_generation")
}
