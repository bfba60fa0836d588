package executor

import (
	"context"
	"fmt"
	"strings"

	"study-assistant-be/pkg/rag/evaluation"
	"study-assistant-be/pkg/rag/prompt"
	"study-assistant-be/pkg/workflow"
)

// AnswerEvaluator grades the student's answer. The reference comes from the task inputs
// first and otherwise from retrieved marking-scheme chunks.
type AnswerEvaluator struct {
	evaluator *evaluation.Evaluator
}

func NewAnswerEvaluator(evaluator *evaluation.Evaluator) *AnswerEvaluator {
	return &AnswerEvaluator{evaluator: evaluator}
}

func (e *AnswerEvaluator) Node() string { return workflow.NodeEvaluateAnswer }

func (e *AnswerEvaluator) Validate(task Task) error {
	if task.Inputs.MaxScore <= 0 {
		return workflow.Validationf("max_score is required for answer evaluation")
	}
	return evaluation.ValidateMaxScore(task.Inputs.MaxScore)
}

func (e *AnswerEvaluator) Execute(ctx context.Context, task Task) (Result, error) {
	in := evaluation.Input{
		Question:      firstNonEmpty(task.Inputs.Question, ExtractQuestion(task.Query)),
		StudentAnswer: firstNonEmpty(task.Inputs.StudentAnswer, ExtractStudentAnswer(task.Query)),
		Reference: firstNonEmpty(
			task.Inputs.ReferenceAnswer,
			task.Inputs.MarkingScheme,
			joinChunks(task.ChunksOfType(workflow.DocumentMarkingScheme)),
		),
		MaxScore: task.Inputs.MaxScore,
	}

	res, err := e.evaluator.Evaluate(ctx, in)
	if err != nil {
		return Result{}, err
	}

	var degradations []workflow.Degradation
	if res.Feedback.SuggestionsSource == evaluation.SourceTemplate && in.StudentAnswer != "" {
		degradations = append(degradations, workflow.Degradation{
			Kind:   workflow.DegradedFeedback,
			Stage:  workflow.NodeEvaluateAnswer,
			Detail: "feedback generation unavailable, suggestions built from covered and missing points",
		})
	}

	return Result{
		Output: workflow.Output{
			Intent:     workflow.IntentAnswerEvaluation,
			Text:       RenderEvaluation(res),
			Evaluation: &res,
		},
		Degradations: degradations,
	}, nil
}

// RenderEvaluation formats an evaluation as a short report.
func RenderEvaluation(r workflow.EvaluationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Score: %s/%s (%d%%)\n\n", prompt.FormatMarks(r.ScoreObtained), prompt.FormatMarks(r.MaxScore), r.AwardedPercent)
	writeList(&b, "Covered points", r.Feedback.CoveredPoints)
	writeList(&b, "Missing points", r.Feedback.MissingPoints)
	if r.Feedback.Suggestions != "" {
		b.WriteString("### Suggestions\n")
		b.WriteString(r.Feedback.Suggestions)
	}
	return strings.TrimSpace(b.String())
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}
