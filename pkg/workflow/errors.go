package workflow

import (
	"errors"
	"fmt"
)

// ErrValidation marks malformed task inputs. Executors wrap it so the orchestrator can
// report a validation failure instead of an internal one.
var ErrValidation = errors.New("validation failure")

type ErrorKind string

const (
	KindValidation ErrorKind = "validation_failure"
	KindGeneration ErrorKind = "generation_failure"
	KindEmbedding  ErrorKind = "embedding_failure"
	KindInternal   ErrorKind = "internal_failure"
	KindCancelled  ErrorKind = "cancelled"
)

// StageError is the structured terminal error placed on a failed state.
type StageError struct {
	Stage  string    `json:"stage"`
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Stage, e.Detail)
}

type DegradationKind string

const (
	DegradedClassification DegradationKind = "classification_degraded"
	DegradedRetrieval      DegradationKind = "retrieval_unavailable"
	DegradedFeedback       DegradationKind = "feedback_templated"
)

// Degradation records a recoverable condition that was absorbed by a stage.
type Degradation struct {
	Kind   DegradationKind `json:"kind"`
	Stage  string          `json:"stage"`
	Detail string          `json:"detail"`
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
