package events

import (
	"study-assistant-be/pkg/workflow"
)

const (
	TypeWorkflowCompleted = "WORKFLOW_COMPLETED"
	TypeWorkflowFailed    = "WORKFLOW_FAILED"
)

// NewWorkflowEvent summarises a terminal state. Generated text and retrieved chunks
// stay out of the payload.
func NewWorkflowEvent(s workflow.State) BaseEvent {
	data := map[string]interface{}{
		"request_id":    s.RequestID.String(),
		"session_id":    s.SessionID.String(),
		"requester_id":  s.RequesterID.String(),
		"status":        string(s.Status),
		"nodes_visited": s.NodesVisited,
		"duration_ms":   s.Duration().Milliseconds(),
		"chunks":        len(s.Chunks),
		"degraded":      s.Degraded(),
	}
	if s.Intent != nil {
		data["intent"] = string(s.Intent.Intent)
		data["confidence"] = s.Intent.Confidence
		data["method"] = string(s.Intent.Method)
	}
	if len(s.Degradations) > 0 {
		kinds := make([]string, 0, len(s.Degradations))
		for _, d := range s.Degradations {
			kinds = append(kinds, string(d.Kind))
		}
		data["degradations"] = kinds
	}

	eventType := TypeWorkflowCompleted
	if s.Err != nil {
		eventType = TypeWorkflowFailed
		data["error_kind"] = string(s.Err.Kind)
		data["error_stage"] = s.Err.Stage
	}

	occurredAt := s.FinishedAt
	if occurredAt.IsZero() {
		occurredAt = s.StartedAt
	}

	return BaseEvent{Type: eventType, Data: data, OccurredAt: occurredAt}
}
