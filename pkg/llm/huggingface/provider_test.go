package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant-be/pkg/llm"
)

func TestHuggingFaceProvider_Chat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer hf-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"mitosis"}}]}`))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("hf-key", srv.URL+"/", "qwen2.5")
	out, err := p.Chat(context.Background(),
		[]llm.Message{{Role: "model", Content: "earlier"}, {Role: "user", Content: "q"}},
		llm.WithJSONFormat(), llm.WithTemperature(0.2))

	require.NoError(t, err)
	assert.Equal(t, "mitosis", out)
	assert.Equal(t, "qwen2.5", got.Model)
	assert.Equal(t, "assistant", got.Messages[0].Role)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
}

func TestHuggingFaceProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http status", http.StatusServiceUnavailable, `overloaded`},
		{"api error", http.StatusOK, `{"error":{"message":"model not found"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"bad json", http.StatusOK, `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHuggingFaceProvider("", srv.URL, "m").Generate(context.Background(), "q")
			assert.Error(t, err)
		})
	}
}
