package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant-be/pkg/resilience"
)

func TestOllamaProvider_GenerateNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{3, 4}})
	}))
	defer srv.Close()

	resp, err := NewOllamaProvider(srv.URL, "").Generate(context.Background(), "cell wall", TaskRetrievalQuery)

	require.NoError(t, err)
	assert.InDelta(t, 0.6, resp.Embedding.Values[0], 1e-6)
	assert.InDelta(t, 0.8, resp.Embedding.Values[1], 1e-6)
}

func TestOllamaProvider_GenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "m").Generate(context.Background(), "x", TaskRetrievalQuery)
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "45 degrees", a: []float32{1, 0}, b: []float32{1, 1}, want: 1 / math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestResilientProvider_WrapsFailure(t *testing.T) {
	inner := &countingProvider{err: errors.New("refused")}
	p := NewResilientProvider(inner, resilience.RetryConfig{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond})

	_, err := p.Generate(context.Background(), "x", TaskRetrievalQuery)

	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestOllamaProvider_TaskPrefix(t *testing.T) {
	tests := []struct {
		model    string
		taskType string
		want     string
	}{
		{"nomic-embed-text", TaskRetrievalQuery, "search_query: osmosis"},
		{"nomic-embed-text", TaskRetrievalDocument, "search_document: osmosis"},
		{"nomic-embed-text", "", "osmosis"},
		{"mxbai-embed-large", TaskRetrievalQuery, "osmosis"},
	}

	for _, tt := range tests {
		t.Run(tt.model+"/"+tt.taskType, func(t *testing.T) {
			var got ollamaEmbeddingRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{1, 0}})
			}))
			defer srv.Close()

			_, err := NewOllamaProvider(srv.URL, tt.model).Generate(context.Background(), "osmosis", tt.taskType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Prompt)
		})
	}
}

func TestOllamaProvider_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{})
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "").Generate(context.Background(), "osmosis", TaskRetrievalQuery)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

type fixedProvider struct {
	resp *EmbeddingResponse
	err  error
}

func (f fixedProvider) Generate(context.Context, string, string) (*EmbeddingResponse, error) {
	return f.resp, f.err
}

func TestVector(t *testing.T) {
	backendErr := errors.New("connection refused")

	tests := []struct {
		name    string
		inner   fixedProvider
		want    []float32
		wantErr error
	}{
		{"values", fixedProvider{resp: &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: []float32{0.6, 0.8}}}}, []float32{0.6, 0.8}, nil},
		{"nil response", fixedProvider{}, nil, ErrEmbeddingUnavailable},
		{"empty values", fixedProvider{resp: &EmbeddingResponse{}}, nil, ErrEmbeddingUnavailable},
		{"backend error passes through", fixedProvider{err: backendErr}, nil, backendErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Vector(context.Background(), tt.inner, "osmosis", TaskRetrievalQuery)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
