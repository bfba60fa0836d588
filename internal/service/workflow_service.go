package service

import (
	"context"
	"errors"

	"study-assistant-be/internal/dto"
	"study-assistant-be/internal/mapper"
	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag/orchestrator"
	"study-assistant-be/pkg/workflow"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// WorkflowRunner is satisfied by *orchestrator.Orchestrator.
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, req orchestrator.Request) workflow.State
	Info() orchestrator.Info
}

type SessionReader interface {
	Get(requesterID, sessionID uuid.UUID) (workflow.State, bool)
}

type IWorkflowService interface {
	// Query runs one request to completion. The returned response carries either the
	// output or the structured error; it is never nil.
	Query(ctx context.Context, userId uuid.UUID, req *dto.WorkflowQueryRequest, onToken llm.TokenSink) *dto.WorkflowQueryResponse
	GetSession(ctx context.Context, userId, sessionId uuid.UUID) (*dto.WorkflowQueryResponse, error)
	Info() *dto.WorkflowInfoResponse
}

type workflowService struct {
	runner   WorkflowRunner
	sessions SessionReader
	mapper   *mapper.WorkflowMapper
}

func NewWorkflowService(runner WorkflowRunner, sessions SessionReader) IWorkflowService {
	return &workflowService{
		runner:   runner,
		sessions: sessions,
		mapper:   mapper.NewWorkflowMapper(),
	}
}

func (s *workflowService) Query(ctx context.Context, userId uuid.UUID, req *dto.WorkflowQueryRequest, onToken llm.TokenSink) *dto.WorkflowQueryResponse {
	var sessionId uuid.UUID
	if req.SessionId != nil {
		sessionId = *req.SessionId
	}

	state := s.runner.RunWorkflow(ctx, orchestrator.Request{
		Query:       req.Query,
		RequesterID: userId,
		SessionID:   sessionId,
		Inputs:      req.TaskInputs,
		OnToken:     onToken,
	})
	return s.mapper.ToQueryResponse(state)
}

// GetSession only returns snapshots owned by the caller; other sessions look absent.
func (s *workflowService) GetSession(ctx context.Context, userId, sessionId uuid.UUID) (*dto.WorkflowQueryResponse, error) {
	state, ok := s.sessions.Get(userId, sessionId)
	if !ok || state.RequesterID != userId {
		return nil, ErrSessionNotFound
	}
	return s.mapper.ToQueryResponse(state), nil
}

func (s *workflowService) Info() *dto.WorkflowInfoResponse {
	info := s.runner.Info()
	return s.mapper.ToInfoResponse(info.Nodes, info.EntryPoint, info.SupportedIntent)
}
