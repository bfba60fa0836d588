// Package testutil holds in-memory stand-ins for the generation and embedding backends.
package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/llm"
)

var ErrUnavailable = errors.New("backend unavailable")

// FakeLLM answers prompts through Handler and records every prompt it saw.
type FakeLLM struct {
	mu      sync.Mutex
	Handler func(prompt string) (string, error)
	Prompts []string
}

func NewFakeLLM(handler func(prompt string) (string, error)) *FakeLLM {
	return &FakeLLM{Handler: handler}
}

// FixedLLM always returns reply.
func FixedLLM(reply string) *FakeLLM {
	return NewFakeLLM(func(string) (string, error) { return reply, nil })
}

// FailingLLM always fails with ErrUnavailable.
func FailingLLM() *FakeLLM {
	return NewFakeLLM(func(string) (string, error) { return "", ErrUnavailable })
}

func (f *FakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	var parts []string
	for _, m := range history {
		parts = append(parts, m.Content)
	}
	p := strings.Join(parts, "\n")

	f.mu.Lock()
	f.Prompts = append(f.Prompts, p)
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return "", ErrUnavailable
	}
	return handler(p)
}

func (f *FakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

// ChatStream emits the reply word by word.
func (f *FakeLLM) ChatStream(ctx context.Context, history []llm.Message, sink llm.TokenSink, options ...llm.Option) (string, error) {
	out, err := f.Chat(ctx, history, options...)
	if err != nil {
		return "", err
	}
	for _, w := range strings.SplitAfter(out, " ") {
		if w == "" || sink == nil {
			continue
		}
		if err := sink(w); err != nil {
			return "", err
		}
	}
	return out, nil
}

func (f *FakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

// FakeEmbedder returns preset vectors for known texts and a bag-of-words hash vector
// for everything else, so identical texts always embed identically.
type FakeEmbedder struct {
	mu      sync.Mutex
	Vectors map[string][]float32
	Err     error
	Texts   []string
}

func NewFakeEmbedder() *FakeEmbedder {
	return &FakeEmbedder{Vectors: map[string][]float32{}}
}

func (f *FakeEmbedder) Set(text string, vec ...float32) *FakeEmbedder {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Vectors[text] = vec
	return f
}

func (f *FakeEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Texts = append(f.Texts, text)
	if f.Err != nil {
		return nil, f.Err
	}
	vec, ok := f.Vectors[text]
	if !ok {
		vec = BagOfWords(text, 64)
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: vec}}, nil
}

func (f *FakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Texts)
}

// BagOfWords hashes lower-cased words into dims buckets.
func BagOfWords(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[int(h.Sum32())%dims]++
	}
	return vec
}
