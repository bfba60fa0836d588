package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// nomicPrefixes are the task instructions nomic-embed-text was trained with. Queries and
// documents embedded without them land measurably further apart.
var nomicPrefixes = map[string]string{
	TaskRetrievalQuery:     "search_query: ",
	TaskRetrievalDocument:  "search_document: ",
	TaskSemanticSimilarity: "clustering: ",
}

// OllamaProvider embeds text with a local Ollama model. Vectors are returned unit length.
type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL string, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// input applies the model's task prefix, if it has one.
func (p *OllamaProvider) input(text, taskType string) string {
	if !strings.HasPrefix(p.Model, "nomic-embed") {
		return text
	}
	return nomicPrefixes[taskType] + text
}

func (p *OllamaProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	body, err := json.Marshal(ollamaEmbeddingRequest{Model: p.Model, Prompt: p.input(text, taskType)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out ollamaEmbeddingResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(raw, &out) == nil && out.Error != "" {
			return nil, fmt.Errorf("ollama embedding error: status %d: %s", resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("ollama embedding error: status %d, body %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode ollama embedding: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: ollama returned an empty embedding for model %s", ErrEmbeddingUnavailable, p.Model)
	}

	values := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		values[i] = float32(v)
	}
	// pgvector cosine distance assumes unit vectors
	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: Normalize(values)},
	}, nil
}
