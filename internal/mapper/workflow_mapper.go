package mapper

import (
	"study-assistant-be/internal/dto"
	"study-assistant-be/pkg/workflow"

	"github.com/google/uuid"
)

type WorkflowMapper struct{}

func NewWorkflowMapper() *WorkflowMapper {
	return &WorkflowMapper{}
}

// ToQueryResponse builds the response envelope from a terminal state.
func (m *WorkflowMapper) ToQueryResponse(s workflow.State) *dto.WorkflowQueryResponse {
	res := &dto.WorkflowQueryResponse{
		RequestId:        s.RequestID,
		Status:           s.Status,
		NodesVisited:     append([]string{}, s.NodesVisited...),
		ProcessingTimeMs: s.Duration().Milliseconds(),
		Error:            s.Err,
		FinishedAt:       s.FinishedAt,
		Metadata: dto.WorkflowMetadata{
			DocumentTypesUsed:     s.DocumentTypes(),
			NumDocumentsRetrieved: len(s.Chunks),
			ContextLength:         len(s.ContextText),
			EnhancedQuery:         s.EnhancedQuery,
			Degradations:          s.Degradations,
		},
	}
	if res.Metadata.DocumentTypesUsed == nil {
		res.Metadata.DocumentTypesUsed = []workflow.DocumentType{}
	}
	if s.SessionID != uuid.Nil {
		id := s.SessionID
		res.SessionId = &id
	}
	if s.Intent != nil {
		res.Intent = s.Intent.Intent
		res.Confidence = s.Intent.Confidence
		res.Method = s.Intent.Method
	}

	if out := s.Output; out != nil {
		res.Response = out.Text
		res.Evaluation = out.Evaluation
		res.Questions = out.Questions
		if out.Doubt != nil {
			res.AnswerSource = out.Doubt.Source
		}
	} else if s.Err != nil {
		res.Response = s.Err.Error()
	}
	return res
}

func (m *WorkflowMapper) ToInfoResponse(nodes []string, entryPoint string, intents []workflow.Intent) *dto.WorkflowInfoResponse {
	return &dto.WorkflowInfoResponse{
		Nodes:            nodes,
		EntryPoint:       entryPoint,
		SupportedIntents: intents,
	}
}
