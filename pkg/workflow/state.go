package workflow

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusClassifying Status = "classifying"
	StatusRetrieving  Status = "retrieving"
	StatusExecuting   Status = "executing"
	StatusDone        Status = "done"
	StatusFailed      Status = "failed"
)

func (s Status) Terminal() bool { return s == StatusDone || s == StatusFailed }

// Node names recorded in NodesVisited.
const (
	NodeValidateRequest   = "validate_request"
	NodeClassifyIntent    = "classify_intent"
	NodeRoute             = "route"
	NodeRetrieveDocuments = "retrieve_documents"
	NodeGenerateAnswer    = "generate_answer"
	NodeEvaluateAnswer    = "evaluate_answer"
	NodeResolveDoubt      = "resolve_doubt"
	NodeGenerateQuestions = "generate_questions"
)

// State is the record threaded through one workflow run. Every With*/Visit method
// returns a new value and never writes through slices shared with the receiver.
type State struct {
	RequestID   uuid.UUID  `json:"request_id"`
	Query       string     `json:"query"`
	RequesterID uuid.UUID  `json:"requester_id"`
	SessionID   uuid.UUID  `json:"session_id"`
	Inputs      TaskInputs `json:"task_inputs"`

	Status Status        `json:"status"`
	Intent *IntentResult `json:"intent,omitempty"`

	// EnhancedQuery is what was embedded; Query itself is never rewritten.
	EnhancedQuery string           `json:"enhanced_query,omitempty"`
	Chunks        []RetrievedChunk `json:"chunks"`
	ContextText   string           `json:"-"`

	Output       *Output       `json:"output,omitempty"`
	Err          *StageError   `json:"error,omitempty"`
	Degradations []Degradation `json:"degradations,omitempty"`
	NodesVisited []string      `json:"nodes_visited"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

func NewState(requestID uuid.UUID, query string, requesterID, sessionID uuid.UUID, inputs TaskInputs, now time.Time) State {
	return State{
		RequestID:   requestID,
		Query:       query,
		RequesterID: requesterID,
		SessionID:   sessionID,
		Inputs:      inputs,
		Status:      StatusClassifying,
		StartedAt:   now,
	}
}

func (s State) Visit(node string) State {
	s.NodesVisited = appendCopy(s.NodesVisited, node)
	return s
}

func (s State) WithStatus(status Status) State {
	s.Status = status
	return s
}

func (s State) WithIntent(r IntentResult) State {
	r.Candidates = append([]Intent(nil), r.Candidates...)
	s.Intent = &r
	return s
}

func (s State) WithInputs(in TaskInputs) State {
	s.Inputs = in
	return s
}

func (s State) WithRetrieval(enhancedQuery string, chunks []RetrievedChunk, contextText string) State {
	s.EnhancedQuery = enhancedQuery
	s.Chunks = append([]RetrievedChunk(nil), chunks...)
	s.ContextText = contextText
	return s
}

func (s State) WithDegradation(d Degradation) State {
	s.Degradations = appendCopy(s.Degradations, d)
	return s
}

// Complete sets the output and moves to Done. Any earlier error is cleared so the
// output/error exclusivity holds.
func (s State) Complete(out Output, at time.Time) State {
	o := out.clone()
	s.Output = &o
	s.Err = nil
	s.Status = StatusDone
	s.FinishedAt = at
	return s
}

// Fail records the stage error and moves to Failed, dropping any partial output.
func (s State) Fail(err StageError, at time.Time) State {
	s.Err = &err
	s.Output = nil
	s.Status = StatusFailed
	s.FinishedAt = at
	return s
}

func (s State) Degraded() bool { return len(s.Degradations) > 0 }

func (s State) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// ChunksOfType returns the retained chunks of one document type in rank order.
func (s State) ChunksOfType(t DocumentType) []RetrievedChunk {
	var out []RetrievedChunk
	for _, c := range s.Chunks {
		if c.DocumentType == t {
			out = append(out, c)
		}
	}
	return out
}

// DocumentTypes lists the distinct document types present in the retained chunks.
func (s State) DocumentTypes() []DocumentType {
	seen := map[DocumentType]bool{}
	var out []DocumentType
	for _, c := range s.Chunks {
		if !seen[c.DocumentType] {
			seen[c.DocumentType] = true
			out = append(out, c.DocumentType)
		}
	}
	return out
}

func appendCopy[T any](src []T, v T) []T {
	out := make([]T, len(src), len(src)+1)
	copy(out, src)
	return append(out, v)
}
