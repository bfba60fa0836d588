// Package executor holds the four task executors the workflow dispatches to.
package executor

import (
	"context"
	"strings"

	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/workflow"
)

// Task is everything an executor may read. It is built by the orchestrator from the
// workflow state after retrieval.
type Task struct {
	Query  string
	Inputs workflow.TaskInputs
	Chunks []workflow.RetrievedChunk
	// Context is the budgeted context block built from Chunks.
	Context string
	// RetrievalUnavailable is set when the index could not be searched.
	RetrievalUnavailable bool
	// Sink receives generated tokens as they arrive. May be nil.
	Sink llm.TokenSink
}

// ChunksOfType returns the chunks of one document type in rank order.
func (t Task) ChunksOfType(dt workflow.DocumentType) []workflow.RetrievedChunk {
	var out []workflow.RetrievedChunk
	for _, c := range t.Chunks {
		if c.DocumentType == dt {
			out = append(out, c)
		}
	}
	return out
}

type Result struct {
	Output       workflow.Output
	Degradations []workflow.Degradation
}

// Executor performs one intent's task. Validate runs before retrieval and must not call
// any backend.
type Executor interface {
	Node() string
	Validate(task Task) error
	Execute(ctx context.Context, task Task) (Result, error)
}

// joinChunks concatenates chunk texts in rank order separated by blank lines.
func joinChunks(chunks []workflow.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// chat runs one system+user exchange, streaming into sink when it is set.
func chat(ctx context.Context, p llm.LLMProvider, system, user string, sink llm.TokenSink, opts ...llm.Option) (string, error) {
	history := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	if sink != nil {
		return llm.Stream(ctx, p, history, sink, opts...)
	}
	return p.Chat(ctx, history, opts...)
}
