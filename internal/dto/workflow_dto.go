package dto

import (
	"time"

	"study-assistant-be/pkg/workflow"

	"github.com/google/uuid"
)

type WorkflowQueryRequest struct {
	Query      string              `json:"query" validate:"max=8000"`
	SessionId  *uuid.UUID          `json:"session_id,omitempty"`
	TaskInputs workflow.TaskInputs `json:"task_inputs"`
}

type WorkflowMetadata struct {
	DocumentTypesUsed     []workflow.DocumentType `json:"document_types_used"`
	NumDocumentsRetrieved int                     `json:"num_documents_retrieved"`
	ContextLength         int                     `json:"context_length"`
	EnhancedQuery         string                  `json:"enhanced_query,omitempty"`
	Degradations          []workflow.Degradation  `json:"degradations,omitempty"`
}

type WorkflowQueryResponse struct {
	RequestId        uuid.UUID                     `json:"request_id"`
	SessionId        *uuid.UUID                    `json:"session_id,omitempty"`
	Status           workflow.Status               `json:"status"`
	Intent           workflow.Intent               `json:"intent,omitempty"`
	Confidence       float64                       `json:"confidence"`
	Method           workflow.ClassificationMethod `json:"classification_method,omitempty"`
	Response         string                        `json:"response"`
	Evaluation       *workflow.EvaluationResult    `json:"evaluation,omitempty"`
	Questions        []workflow.GeneratedQuestion  `json:"questions,omitempty"`
	AnswerSource     workflow.AnswerSource         `json:"answer_source,omitempty"`
	NodesVisited     []string                      `json:"nodes_visited"`
	ProcessingTimeMs int64                         `json:"processing_time_ms"`
	Metadata         WorkflowMetadata              `json:"metadata"`
	Error            *workflow.StageError          `json:"error,omitempty"`
	FinishedAt       time.Time                     `json:"finished_at"`
}

type WorkflowInfoResponse struct {
	Nodes            []string          `json:"nodes"`
	EntryPoint       string            `json:"entry_point"`
	SupportedIntents []workflow.Intent `json:"supported_intents"`
}
