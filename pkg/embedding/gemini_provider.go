package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const geminiEmbeddingModel = "text-embedding-004"

type geminiContentPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiContentPart `json:"parts"`
}

type geminiEmbeddingRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"task_type,omitempty"`
}

type GeminiProvider struct {
	ApiKey  string
	BaseURL string
	Client  *http.Client
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		ApiKey:  apiKey,
		BaseURL: "https://generativelanguage.googleapis.com/v1",
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	body, err := json.Marshal(geminiEmbeddingRequest{
		Model:    geminiEmbeddingModel,
		Content:  geminiContent{Parts: []geminiContentPart{{Text: text}}},
		TaskType: taskType,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:embedContent", p.BaseURL, geminiEmbeddingModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error from gemini response, code %d, body %s", res.StatusCode, string(resByte))
	}

	var resEmbedding EmbeddingResponse
	if err := json.Unmarshal(resByte, &resEmbedding); err != nil {
		return nil, err
	}
	resEmbedding.Embedding.Values = Normalize(resEmbedding.Embedding.Values)

	return &resEmbedding, nil
}

// NewProvider picks a backend by name; unknown names fall back to Ollama.
func NewProvider(name, ollamaBaseURL, ollamaModel, geminiKey string) EmbeddingProvider {
	if name == "gemini" {
		return NewGeminiProvider(geminiKey)
	}
	return NewOllamaProvider(ollamaBaseURL, ollamaModel)
}
