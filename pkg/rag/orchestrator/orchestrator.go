// Package orchestrator runs one request through classification, retrieval and a task
// executor, producing a terminal workflow state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag/executor"
	"study-assistant-be/pkg/rag/retrieval"
	"study-assistant-be/pkg/resilience"
	"study-assistant-be/pkg/workflow"
)

type Classifier interface {
	Classify(ctx context.Context, query string) workflow.IntentResult
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, intent workflow.Intent, requesterID uuid.UUID) retrieval.Result
}

// Observer is told about every stage and every finished run.
type Observer interface {
	StageFinished(stage string, elapsed time.Duration, failed bool)
	RunFinished(state workflow.State)
}

// SessionStore keeps the last terminal state per requester and session.
type SessionStore interface {
	Save(state workflow.State)
}

// Publisher announces finished runs. Failures are logged and never affect the result.
type Publisher interface {
	PublishRun(ctx context.Context, state workflow.State) error
}

type Request struct {
	Query       string              `validate:"max=8000"`
	RequesterID uuid.UUID           `validate:"required"`
	SessionID   uuid.UUID           `validate:"-"`
	Inputs      workflow.TaskInputs
	// OnToken streams generated text as it arrives. Optional.
	OnToken llm.TokenSink `validate:"-"`
}

type Orchestrator struct {
	classifier Classifier
	router     *Router
	retriever  Retriever
	validate   *validator.Validate
	tracer     trace.Tracer
	clock      resilience.Clock
	logger     logger.ILogger

	observer  Observer
	sessions  SessionStore
	publisher Publisher
}

type Option func(*Orchestrator)

func WithObserver(o Observer) Option         { return func(x *Orchestrator) { x.observer = o } }
func WithSessionStore(s SessionStore) Option { return func(x *Orchestrator) { x.sessions = s } }
func WithPublisher(p Publisher) Option       { return func(x *Orchestrator) { x.publisher = p } }
func WithClock(c resilience.Clock) Option    { return func(x *Orchestrator) { x.clock = c } }

func New(classifier Classifier, router *Router, retriever Retriever, log logger.ILogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		router:     router,
		retriever:  retriever,
		validate:   validator.New(),
		tracer:     otel.Tracer("study-assistant/workflow"),
		clock:      resilience.SystemClock(),
		logger:     log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Info describes the graph for the info endpoint.
type Info struct {
	Nodes           []string          `json:"nodes"`
	EntryPoint      string            `json:"entry_point"`
	SupportedIntent []workflow.Intent `json:"supported_intents"`
}

func (o *Orchestrator) Info() Info {
	nodes := []string{workflow.NodeValidateRequest, workflow.NodeClassifyIntent, workflow.NodeRoute, workflow.NodeRetrieveDocuments}
	return Info{
		Nodes:           append(nodes, o.router.Nodes()...),
		EntryPoint:      workflow.NodeValidateRequest,
		SupportedIntent: o.router.Intents(),
	}
}

// run carries one request through the stages. It is never shared between requests.
type run struct {
	o *Orchestrator
	// ctx is the caller's context, checked between stages. callCtx never cancels so
	// an in-flight backend call always resolves before its result is discarded.
	ctx     context.Context
	callCtx context.Context
	state   workflow.State

	stage      string
	stageStart time.Time
	stageSpan  trace.Span // nil between stages
}

// RunWorkflow always returns a terminal state with exactly one of Output or Err set.
func (o *Orchestrator) RunWorkflow(ctx context.Context, req Request) (final workflow.State) {
	ctx, span := o.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("requester_id", req.RequesterID.String()),
		attribute.String("session_id", req.SessionID.String()),
	))
	defer span.End()

	r := &run{
		o:       o,
		ctx:     ctx,
		callCtx: context.WithoutCancel(ctx),
		state:   workflow.NewState(uuid.New(), req.Query, req.RequesterID, req.SessionID, req.Inputs, o.clock.Now()),
	}

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("WORKFLOW", "Stage panicked", map[string]interface{}{
				"request_id": r.state.RequestID.String(),
				"stage":      r.stage,
				"panic":      fmt.Sprint(rec),
			})
			if r.stageSpan != nil {
				r.exit(true)
			}
			final = r.state.Fail(workflow.StageError{Stage: r.stage, Kind: workflow.KindInternal, Detail: fmt.Sprintf("panic: %v", rec)}, o.clock.Now())
		}
		o.finish(ctx, span, final)
	}()

	return r.execute(req)
}

func (r *run) execute(req Request) workflow.State {
	o := r.o

	// validate_request
	r.enter(workflow.NodeValidateRequest)
	if err := o.validate.Struct(req); err != nil {
		return r.fail(fmt.Errorf("%w: %s", workflow.ErrValidation, err.Error()))
	}
	r.exit(false)

	// classify_intent
	r.enter(workflow.NodeClassifyIntent)
	intent := o.classifier.Classify(r.callCtx, req.Query)
	r.state = r.state.WithIntent(intent)
	if intent.Degraded {
		r.state = r.state.WithDegradation(workflow.Degradation{Kind: workflow.DegradedClassification, Stage: r.stage, Detail: intent.Reason})
	}
	if r.cancelled() {
		return r.state
	}
	r.exit(false)

	// route
	r.enter(workflow.NodeRoute)
	ex, lowConfidence, err := o.router.Route(intent)
	if err != nil {
		return r.fail(err)
	}
	if lowConfidence {
		r.state = r.state.WithDegradation(workflow.Degradation{
			Kind:   workflow.DegradedClassification,
			Stage:  r.stage,
			Detail: fmt.Sprintf("low confidence %.2f for %s", intent.Confidence, intent.Intent),
		})
	}
	task := executor.Task{Query: req.Query, Inputs: req.Inputs, Sink: req.OnToken}
	if err := ex.Validate(task); err != nil {
		return r.fail(err)
	}
	r.exit(false)

	// retrieve_documents
	r.state = r.state.WithStatus(workflow.StatusRetrieving)
	r.enter(workflow.NodeRetrieveDocuments)
	res := o.retriever.Retrieve(r.callCtx, req.Query, intent.Intent, req.RequesterID)
	r.state = r.state.WithRetrieval(res.EnhancedQuery, res.Chunks, res.Context)
	if res.Unavailable {
		detail := "retrieval unavailable"
		if res.Err != nil {
			detail = res.Err.Error()
		}
		r.state = r.state.WithDegradation(workflow.Degradation{Kind: workflow.DegradedRetrieval, Stage: r.stage, Detail: detail})
	}
	if r.cancelled() {
		return r.state
	}
	r.exit(false)

	// task executor
	r.state = r.state.WithStatus(workflow.StatusExecuting)
	r.enter(ex.Node())
	task.Chunks = res.Chunks
	task.Context = res.Context
	task.RetrievalUnavailable = res.Unavailable

	result, err := ex.Execute(r.callCtx, task)
	if r.cancelled() {
		return r.state
	}
	if err != nil {
		return r.fail(err)
	}
	for _, d := range result.Degradations {
		r.state = r.state.WithDegradation(d)
	}
	r.exit(false)

	return r.state.Complete(result.Output, o.clock.Now())
}

// enter records the stage on the audit trail and starts its span.
func (r *run) enter(stage string) {
	r.stage = stage
	r.state = r.state.Visit(stage)
	r.stageStart = r.o.clock.Now()
	_, r.stageSpan = r.o.tracer.Start(r.ctx, stage)
}

func (r *run) exit(failed bool) {
	if failed {
		r.stageSpan.SetStatus(codes.Error, "stage failed")
	}
	r.stageSpan.End()
	r.stageSpan = nil
	if r.o.observer != nil {
		r.o.observer.StageFinished(r.stage, r.o.clock.Now().Sub(r.stageStart), failed)
	}
}

func (r *run) fail(err error) workflow.State {
	kind := ErrorKind(err)
	r.o.logger.Warn("WORKFLOW", "Stage failed", map[string]interface{}{
		"request_id": r.state.RequestID.String(),
		"stage":      r.stage,
		"kind":       kind,
		"error":      err,
	})
	r.exit(true)
	r.state = r.state.Fail(workflow.StageError{Stage: r.stage, Kind: kind, Detail: err.Error()}, r.o.clock.Now())
	return r.state
}

// cancelled fails the run when the caller has gone away. The stage's own result,
// if any, is discarded.
func (r *run) cancelled() bool {
	if err := r.ctx.Err(); err != nil {
		r.fail(fmt.Errorf("request cancelled: %w", err))
		return true
	}
	return false
}

// ErrorKind classifies a stage error for the structured failure.
func ErrorKind(err error) workflow.ErrorKind {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		return workflow.KindValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return workflow.KindCancelled
	case errors.Is(err, llm.ErrGenerationFailed), errors.Is(err, resilience.ErrCircuitOpen):
		return workflow.KindGeneration
	case errors.Is(err, embedding.ErrEmbeddingUnavailable):
		return workflow.KindEmbedding
	default:
		return workflow.KindInternal
	}
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, s workflow.State) {
	fields := map[string]interface{}{
		"request_id":    s.RequestID.String(),
		"status":        s.Status,
		"nodes_visited": s.NodesVisited,
		"duration_ms":   s.Duration().Milliseconds(),
		"degraded":      s.Degraded(),
	}
	if s.Intent != nil {
		fields["intent"] = s.Intent.Intent
		span.SetAttributes(attribute.String("intent", string(s.Intent.Intent)))
	}
	span.SetAttributes(attribute.String("status", string(s.Status)), attribute.Bool("degraded", s.Degraded()))

	if s.Err != nil {
		fields["error_kind"] = s.Err.Kind
		fields["error_stage"] = s.Err.Stage
		span.SetStatus(codes.Error, s.Err.Error())
		o.logger.Warn("WORKFLOW", "Workflow failed", fields)
	} else {
		o.logger.Info("WORKFLOW", "Workflow completed", fields)
	}

	if o.observer != nil {
		o.observer.RunFinished(s)
	}
	if o.sessions != nil && s.SessionID != uuid.Nil {
		o.sessions.Save(s)
	}
	if o.publisher != nil {
		if err := o.publisher.PublishRun(context.WithoutCancel(ctx), s); err != nil {
			o.logger.Warn("WORKFLOW", "Publishing run event failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
