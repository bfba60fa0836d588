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
	NoticeNoScheme = "No marking scheme was available, so this answer follows your notes rather than a scheme's structure."
	NoticeNoNotes  = "No marking scheme or matching notes were available, so this answer is based on general knowledge."
)

// AnswerGenerator writes a model answer, aligned to a marking scheme when one is supplied
// or retrieved.
type AnswerGenerator struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewAnswerGenerator(llmProvider llm.LLMProvider, log logger.ILogger) *AnswerGenerator {
	return &AnswerGenerator{llmProvider: llmProvider, logger: log}
}

func (g *AnswerGenerator) Node() string { return workflow.NodeGenerateAnswer }

func (g *AnswerGenerator) Validate(task Task) error {
	if firstNonEmpty(task.Inputs.Question, task.Query) == "" {
		return workflow.Validationf("a question is required to generate an answer")
	}
	return nil
}

func (g *AnswerGenerator) Execute(ctx context.Context, task Task) (Result, error) {
	question := firstNonEmpty(task.Inputs.Question, task.Query)
	scheme := firstNonEmpty(task.Inputs.MarkingScheme, joinChunks(task.ChunksOfType(workflow.DocumentMarkingScheme)))
	notes := joinChunks(append(task.ChunksOfType(workflow.DocumentNotes), task.ChunksOfType(workflow.DocumentQuestionPaper)...))

	answer := workflow.GeneratedAnswer{SchemeAligned: scheme != ""}
	var userPrompt string
	if answer.SchemeAligned {
		userPrompt = prompt.SchemeAlignedAnswer(question, scheme, notes)
	} else {
		userPrompt = prompt.NotesOnlyAnswer(question, notes)
		answer.Notice = NoticeNoScheme
		if notes == "" {
			answer.Notice = NoticeNoNotes
		}
	}

	text, err := chat(ctx, g.llmProvider, prompt.AnswerWriterSystem, userPrompt, task.Sink, llm.WithTemperature(0.3))
	if err != nil {
		return Result{}, fmt.Errorf("generate answer: %w", err)
	}
	answer.Text = strings.TrimSpace(text)

	g.logger.Info("ANSWER", "Answer generated", map[string]interface{}{
		"scheme_aligned": answer.SchemeAligned,
		"length":         len(answer.Text),
	})

	out := answer.Text
	if answer.Notice != "" {
		out = answer.Text + "\n\n---\n*" + answer.Notice + "*"
	}
	return Result{Output: workflow.Output{
		Intent: workflow.IntentAnswerGeneration,
		Text:   out,
		Answer: &answer,
	}}, nil
}
