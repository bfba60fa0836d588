package executor

import (
	"context"
	"fmt"
	"strings"

	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag/prompt"
	"study-assistant-be/pkg/workflow"
)

const (
	HeaderFromNotes = "## Answer (Based on Your Notes)"
	HeaderGeneral   = "## Answer (General Knowledge)"

	FooterFromNotes    = "*This answer is based on your uploaded notes.*"
	FooterMixed        = "*This answer is based on your uploaded notes. Paragraphs marked " + prompt.GeneralKnowledgeMarker + " are general knowledge and not from your notes.*"
	FooterGeneral      = "*This answer is based on general knowledge because your notes do not cover this topic. Please verify it against your study materials.*"
	FooterUnsearchable = "*This answer is based on general knowledge because your notes could not be searched right now. Please verify it against your study materials.*"

	emptyQuestionReply = "Please type the concept or question you would like explained."
)

type DoubtConfig struct {
	// RelevanceFloor is the similarity at least one chunk must reach for the notes path.
	RelevanceFloor float64
}

// DoubtResolver explains concepts from the student's notes and falls back to general
// knowledge, labelling which is which.
type DoubtResolver struct {
	llmProvider llm.LLMProvider
	cfg         DoubtConfig
	logger      logger.ILogger
}

func NewDoubtResolver(llmProvider llm.LLMProvider, cfg DoubtConfig, log logger.ILogger) *DoubtResolver {
	return &DoubtResolver{llmProvider: llmProvider, cfg: cfg, logger: log}
}

func (d *DoubtResolver) Node() string { return workflow.NodeResolveDoubt }

// Validate accepts everything; an empty question gets a prompt to ask one.
func (d *DoubtResolver) Validate(Task) error { return nil }

func (d *DoubtResolver) Execute(ctx context.Context, task Task) (Result, error) {
	question := firstNonEmpty(task.Inputs.Question, task.Query)
	if question == "" {
		return d.result(emptyQuestionReply, workflow.SourceGeneralKnowledge), nil
	}

	if d.hasRelevantNotes(task.Chunks) {
		text, err := chat(ctx, d.llmProvider, prompt.TutorSystem, prompt.DoubtFromNotes(question, task.Context), task.Sink, llm.WithTemperature(0.7))
		if err != nil {
			return Result{}, fmt.Errorf("resolve doubt from notes: %w", err)
		}
		text = strings.TrimSpace(text)

		source, footer := workflow.SourceNotes, FooterFromNotes
		if strings.Contains(text, prompt.GeneralKnowledgeMarker) {
			source, footer = workflow.SourceMixed, FooterMixed
		}
		d.logger.Info("DOUBT", "Doubt resolved", map[string]interface{}{"source": source, "chunks": len(task.Chunks)})
		return d.result(HeaderFromNotes+"\n\n"+text+"\n\n---\n"+footer, source), nil
	}

	text, err := chat(ctx, d.llmProvider, prompt.TutorSystem, prompt.DoubtGeneral(question), task.Sink, llm.WithTemperature(0.8))
	if err != nil {
		return Result{}, fmt.Errorf("resolve doubt from general knowledge: %w", err)
	}

	footer := FooterGeneral
	if task.RetrievalUnavailable {
		footer = FooterUnsearchable
	}
	d.logger.Info("DOUBT", "Doubt resolved", map[string]interface{}{
		"source":                workflow.SourceGeneralKnowledge,
		"retrieval_unavailable": task.RetrievalUnavailable,
	})
	return d.result(HeaderGeneral+"\n\n"+strings.TrimSpace(text)+"\n\n---\n"+footer, workflow.SourceGeneralKnowledge), nil
}

func (d *DoubtResolver) hasRelevantNotes(chunks []workflow.RetrievedChunk) bool {
	for _, c := range chunks {
		if c.Similarity >= d.cfg.RelevanceFloor {
			return true
		}
	}
	return false
}

func (d *DoubtResolver) result(text string, source workflow.AnswerSource) Result {
	return Result{Output: workflow.Output{
		Intent: workflow.IntentDoubtClarification,
		Text:   text,
		Doubt:  &workflow.DoubtAnswer{Text: text, Source: source},
	}}
}
