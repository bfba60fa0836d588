package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"study-assistant-be/pkg/workflow"
)

func TestClassification_ConstrainsCandidates(t *testing.T) {
	p := Classification("check and grade", []workflow.Intent{workflow.IntentAnswerEvaluation, workflow.IntentQuestionGeneration})

	assert.Contains(t, p, "Choose ONLY between: ANSWER_EVALUATION, QUESTION_GENERATION")
	assert.Contains(t, p, "check and grade")
	assert.Contains(t, p, "CONFIDENCE:")
}

func TestQuestions_MCQFormat(t *testing.T) {
	p := Questions(QuestionRequest{Count: 5, Type: workflow.QuestionMCQ, Difficulty: workflow.DifficultyEasy, Marks: 1, Topic: "cells"},
		"", []string{"What is a cell?"})

	assert.Contains(t, p, "Write 5 multiple-choice question(s) at easy difficulty worth 1 mark(s) each.")
	assert.Contains(t, p, "exactly one with \"correct\": true")
	assert.Contains(t, p, "- What is a cell?")
	assert.Contains(t, p, "no notes available")
}

func TestFormatMarks(t *testing.T) {
	tests := map[float64]string{10: "10", 7: "7", 3.5: "3.5", 0.25: "0.25", 0: "0"}
	for in, want := range tests {
		assert.Equal(t, want, FormatMarks(in))
	}
}
