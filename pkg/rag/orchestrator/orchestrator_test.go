package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant-be/internal/config"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/testutil"
	"study-assistant-be/pkg/embedding"
	"study-assistant-be/pkg/llm"
	"study-assistant-be/pkg/rag/evaluation"
	"study-assistant-be/pkg/rag/executor"
	"study-assistant-be/pkg/rag/intent"
	"study-assistant-be/pkg/rag/retrieval"
	"study-assistant-be/pkg/resilience"
	"study-assistant-be/pkg/workflow"
)

var (
	student   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	sessionID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	fastRetry = resilience.RetryConfig{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
)

const (
	reference = "Machine learning enables systems to learn from data."
	answer    = "ML allows computers to improve through experience"
)

type fakeIndex struct {
	mu    sync.Mutex
	hits  []workflow.RetrievedChunk
	err   error
	calls int
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, filter retrieval.AccessFilter, topK int) ([]workflow.RetrievedChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]workflow.RetrievedChunk(nil), f.hits...), nil
}

type recorder struct {
	mu        sync.Mutex
	stages    []string
	failed    []string
	runs      []workflow.State
	saved     []workflow.State
	published []workflow.State
}

func (r *recorder) StageFinished(stage string, _ time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
	if failed {
		r.failed = append(r.failed, stage)
	}
}

func (r *recorder) RunFinished(s workflow.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, s)
}

func (r *recorder) Save(s workflow.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, s)
}

func (r *recorder) PublishRun(_ context.Context, s workflow.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, s)
	return errors.New("bus offline")
}

type harness struct {
	llm   *testutil.FakeLLM
	emb   *testutil.FakeEmbedder
	index *fakeIndex
	rec   *recorder
	orch  *Orchestrator
}

func newHarness(handler func(prompt string) (string, error)) *harness {
	h := &harness{
		llm:   testutil.NewFakeLLM(handler),
		emb:   testutil.NewFakeEmbedder(),
		index: &fakeIndex{},
		rec:   &recorder{},
	}
	log := logger.NewNopLogger()

	breaker := resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 50, Cooldown: time.Minute}, resilience.SystemClock())
	gen := llm.NewResilientProvider(h.llm, breaker, fastRetry)
	emb := embedding.NewResilientProvider(h.emb, fastRetry)

	retrieverCfg := retrieval.DefaultConfig()
	retrieverCfg.Retry = fastRetry

	router := NewRouter(map[workflow.Intent]executor.Executor{
		workflow.IntentAnswerGeneration:    executor.NewAnswerGenerator(gen, log),
		workflow.IntentAnswerEvaluation:    executor.NewAnswerEvaluator(evaluation.NewEvaluator(emb, gen, evaluation.DefaultConfig(), log)),
		workflow.IntentDoubtClarification:  executor.NewDoubtResolver(gen, executor.DoubtConfig{RelevanceFloor: 0.3}, log),
		workflow.IntentQuestionGeneration:  executor.NewQuestionGenerator(gen, config.DefaultMarkConvention(), executor.DefaultQuestionConfig(), log),
		workflow.IntentExamPaperGeneration: executor.NewExamPaperGenerator(gen, config.DefaultMarkConvention(), executor.DefaultQuestionConfig(), log),
	}, 0.5)

	h.orch = New(
		intent.NewClassifier(intent.DefaultRules(), gen, intent.DefaultConfig(), log),
		router,
		retrieval.NewRetriever(emb, h.index, retrieverCfg, log),
		log,
		WithObserver(h.rec),
		WithSessionStore(h.rec),
		WithPublisher(h.rec),
	)
	return h
}

func isClassificationPrompt(p string) bool { return strings.Contains(p, "<intents>") }

func assertTerminal(t *testing.T, s workflow.State) {
	t.Helper()
	assert.True(t, s.Status.Terminal())
	assert.NotEmpty(t, s.NodesVisited)
	assert.True(t, (s.Output == nil) != (s.Err == nil), "exactly one of output and error")
	assert.False(t, s.FinishedAt.IsZero())
}

func TestRunWorkflow_EvaluationScenario(t *testing.T) {
	h := newHarness(func(string) (string, error) { return "Well done. Also say that systems learn from data.", nil })
	h.emb.Set(reference, 0.82, 0.5724, 0).
		Set(answer, 1, 0, 0).
		Set("Machine learning enables systems", 1, 0, 0).
		Set("to learn from data", 0, 0, 1).
		Set("ML allows computers", 1, 0, 0).
		Set("to improve through experience", 0, 1, 0)
	h.index.hits = []workflow.RetrievedChunk{{
		ChunkID:      uuid.New(),
		OwnerID:      student,
		Visibility:   workflow.VisibilityPrivate,
		DocumentType: workflow.DocumentMarkingScheme,
		Similarity:   0.9,
		Text:         reference,
	}}

	s := h.orch.RunWorkflow(context.Background(), Request{
		Query:       "Evaluate my answer: " + answer,
		RequesterID: student,
		SessionID:   sessionID,
		Inputs:      workflow.TaskInputs{MaxScore: 10},
	})

	assertTerminal(t, s)
	require.Equal(t, workflow.StatusDone, s.Status)
	assert.Equal(t, workflow.IntentAnswerEvaluation, s.Intent.Intent)
	assert.Equal(t, workflow.MethodRule, s.Intent.Method)
	assert.Equal(t, []string{
		workflow.NodeValidateRequest,
		workflow.NodeClassifyIntent,
		workflow.NodeRoute,
		workflow.NodeRetrieveDocuments,
		workflow.NodeEvaluateAnswer,
	}, s.NodesVisited)

	ev := s.Output.Evaluation
	require.NotNil(t, ev)
	assert.InDelta(t, 0.82, ev.Similarity, 0.001)
	assert.Equal(t, 70, ev.AwardedPercent)
	assert.InDelta(t, 7, ev.ScoreObtained, 1e-9)
	assert.Contains(t, ev.Feedback.CoveredPoints, "Machine learning enables systems")
	assert.Contains(t, ev.Feedback.MissingPoints, "to learn from data")
	assert.Equal(t, evaluation.SourceLLM, ev.Feedback.SuggestionsSource)
	assert.False(t, s.Degraded())

	assert.Equal(t, s.NodesVisited, h.rec.stages)
	require.Len(t, h.rec.saved, 1)
	assert.Equal(t, sessionID, h.rec.saved[0].SessionID)
	assert.Len(t, h.rec.published, 1, "publish errors are logged, not fatal")
}

func TestRunWorkflow_ClassifierFallbackUnavailableStillCompletes(t *testing.T) {
	h := newHarness(func(p string) (string, error) {
		if isClassificationPrompt(p) {
			return "", testutil.ErrUnavailable
		}
		return "Volcanoes form where magma reaches the surface.", nil
	})

	s := h.orch.RunWorkflow(context.Background(), Request{Query: "Tell me something interesting about volcanoes", RequesterID: student})

	assertTerminal(t, s)
	require.Equal(t, workflow.StatusDone, s.Status)
	assert.Equal(t, workflow.IntentDoubtClarification, s.Intent.Intent)
	assert.Equal(t, 0.0, s.Intent.Confidence)
	assert.True(t, s.Intent.Degraded)
	require.NotEmpty(t, s.Degradations)
	assert.Equal(t, workflow.DegradedClassification, s.Degradations[0].Kind)
	assert.Equal(t, workflow.NodeResolveDoubt, s.NodesVisited[len(s.NodesVisited)-1])
}

func TestRunWorkflow_IndexFailureAnswersFromGeneralKnowledge(t *testing.T) {
	h := newHarness(func(string) (string, error) { return "Quantum computers use qubits.", nil })
	h.index.err = errors.New("connection refused")

	s := h.orch.RunWorkflow(context.Background(), Request{Query: "What is quantum computing?", RequesterID: student})

	assertTerminal(t, s)
	require.Equal(t, workflow.StatusDone, s.Status)
	assert.Empty(t, s.Chunks)
	require.NotNil(t, s.Output.Doubt)
	assert.Equal(t, workflow.SourceGeneralKnowledge, s.Output.Doubt.Source)
	assert.Contains(t, s.Output.Text, executor.FooterUnsearchable)
	assert.Equal(t, 2, h.index.calls)

	kinds := []workflow.DegradationKind{}
	for _, d := range s.Degradations {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, workflow.DegradedRetrieval)
}

func TestRunWorkflow_GenerationFailureIsStructured(t *testing.T) {
	h := newHarness(func(string) (string, error) { return "", testutil.ErrUnavailable })

	s := h.orch.RunWorkflow(context.Background(), Request{Query: "Write a model answer on photosynthesis", RequesterID: student})

	assertTerminal(t, s)
	require.Equal(t, workflow.StatusFailed, s.Status)
	require.NotNil(t, s.Err)
	assert.Equal(t, workflow.KindGeneration, s.Err.Kind)
	assert.Equal(t, workflow.NodeGenerateAnswer, s.Err.Stage)
	assert.Nil(t, s.Output)
	assert.Equal(t, workflow.NodeGenerateAnswer, s.NodesVisited[len(s.NodesVisited)-1])
	assert.Equal(t, []string{workflow.NodeGenerateAnswer}, h.rec.failed)
}

func TestRunWorkflow_ValidationFailsBeforeAnyBackendCall(t *testing.T) {
	h := newHarness(func(string) (string, error) { return "x", nil })

	s := h.orch.RunWorkflow(context.Background(), Request{Query: "Evaluate my answer: photosynthesis makes sugar", RequesterID: student})

	assertTerminal(t, s)
	require.Equal(t, workflow.StatusFailed, s.Status)
	assert.Equal(t, workflow.KindValidation, s.Err.Kind)
	assert.Equal(t, workflow.NodeRoute, s.Err.Stage)
	assert.Zero(t, h.llm.Calls())
	assert.Zero(t, h.emb.Calls())
	assert.Zero(t, h.index.calls)
}

func TestRunWorkflow_RejectsMalformedRequest(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"missing requester", Request{Query: "What is ML?"}},
		{"bad difficulty", Request{Query: "q", RequesterID: student, Inputs: workflow.TaskInputs{Difficulty: "impossible"}}},
		{"negative max score", Request{Query: "q", RequesterID: student, Inputs: workflow.TaskInputs{MaxScore: -1}}},
		{"count too large", Request{Query: "q", RequesterID: student, Inputs: workflow.TaskInputs{Count: 500}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(func(string) (string, error) { return "x", nil })

			s := h.orch.RunWorkflow(context.Background(), tt.req)

			assertTerminal(t, s)
			assert.Equal(t, workflow.KindValidation, s.Err.Kind)
			assert.Equal(t, []string{workflow.NodeValidateRequest}, s.NodesVisited)
			assert.Zero(t, h.llm.Calls())
		})
	}
}

func TestRunWorkflow_CancelledRequestIsDiscarded(t *testing.T) {
	h := newHarness(func(string) (string, error) { return "x", nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := h.orch.RunWorkflow(ctx, Request{Query: "What is osmosis?", RequesterID: student})

	assertTerminal(t, s)
	require.Equal(t, workflow.StatusFailed, s.Status)
	assert.Equal(t, workflow.KindCancelled, s.Err.Kind)
	assert.Equal(t, workflow.NodeClassifyIntent, s.Err.Stage)
	assert.Zero(t, h.index.calls)
}

type panickingExecutor struct{}

func (panickingExecutor) Node() string                { return "explode" }
func (panickingExecutor) Validate(executor.Task) error { return nil }
func (panickingExecutor) Execute(context.Context, executor.Task) (executor.Result, error) {
	panic("boom")
}

type fixedClassifier workflow.IntentResult

func (c fixedClassifier) Classify(context.Context, string) workflow.IntentResult {
	return workflow.IntentResult(c)
}

func TestRunWorkflow_PanicBecomesInternalFailure(t *testing.T) {
	router := NewRouter(map[workflow.Intent]executor.Executor{workflow.IntentDoubtClarification: panickingExecutor{}}, 0.5)
	retriever := retrieval.NewRetriever(testutil.NewFakeEmbedder(), &fakeIndex{}, retrieval.DefaultConfig(), logger.NewNopLogger())
	rec := &recorder{}
	orch := New(fixedClassifier{Intent: workflow.IntentDoubtClarification, Confidence: 0.95, Method: workflow.MethodRule}, router, retriever, logger.NewNopLogger(), WithObserver(rec))

	s := orch.RunWorkflow(context.Background(), Request{Query: "q", RequesterID: student})

	assertTerminal(t, s)
	assert.Equal(t, workflow.KindInternal, s.Err.Kind)
	assert.Equal(t, "explode", s.Err.Stage)
	assert.Contains(t, s.Err.Detail, "boom")
	assert.Len(t, rec.runs, 1)

	assert.Equal(t, []string{"explode"}, rec.failed)
	require.NotEmpty(t, rec.stages)
	assert.Equal(t, "explode", rec.stages[len(rec.stages)-1])
	assert.Equal(t, 1, countOf(rec.stages, "explode"), "panicking stage is finished exactly once")
}

func countOf(list []string, v string) int {
	n := 0
	for _, x := range list {
		if x == v {
			n++
		}
	}
	return n
}

func TestRunWorkflow_LowConfidenceProceedsDegraded(t *testing.T) {
	h := newHarness(func(string) (string, error) { return "answer", nil })
	orch := New(fixedClassifier{Intent: workflow.IntentDoubtClarification, Confidence: 0.2, Method: workflow.MethodFallback}, h.orch.router, h.orch.retriever, logger.NewNopLogger())

	s := orch.RunWorkflow(context.Background(), Request{Query: "hmm", RequesterID: student})

	require.Equal(t, workflow.StatusDone, s.Status)
	require.Len(t, s.Degradations, 1)
	assert.Equal(t, workflow.DegradedClassification, s.Degradations[0].Kind)
	assert.Equal(t, workflow.NodeRoute, s.Degradations[0].Stage)
}

func TestRunWorkflow_UnroutableIntentFails(t *testing.T) {
	router := NewRouter(map[workflow.Intent]executor.Executor{}, 0.5)
	orch := New(fixedClassifier{Intent: workflow.IntentDoubtClarification, Confidence: 1}, router, nil, logger.NewNopLogger())

	s := orch.RunWorkflow(context.Background(), Request{Query: "q", RequesterID: student})

	assertTerminal(t, s)
	assert.Equal(t, workflow.KindInternal, s.Err.Kind)
	assert.Equal(t, workflow.NodeRoute, s.Err.Stage)
}

func TestRunWorkflow_StreamsTokens(t *testing.T) {
	h := newHarness(func(string) (string, error) { return "Light energy becomes chemical energy.", nil })
	var got strings.Builder

	s := h.orch.RunWorkflow(context.Background(), Request{
		Query:       "Write a model answer on photosynthesis",
		RequesterID: student,
		OnToken:     func(c string) error { got.WriteString(c); return nil },
	})

	require.Equal(t, workflow.StatusDone, s.Status)
	assert.Equal(t, "Light energy becomes chemical energy.", got.String())
	assert.Equal(t, "Light energy becomes chemical energy.", s.Output.Answer.Text)
}

func TestRunWorkflow_ConcurrentRequestsDoNotShareState(t *testing.T) {
	h := newHarness(func(string) (string, error) { return "ok", nil })

	var wg sync.WaitGroup
	states := make([]workflow.State, 8)
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = h.orch.RunWorkflow(context.Background(), Request{Query: "Explain osmosis", RequesterID: student})
		}(i)
	}
	wg.Wait()

	ids := map[uuid.UUID]bool{}
	for _, s := range states {
		require.Equal(t, workflow.StatusDone, s.Status)
		assert.Len(t, s.NodesVisited, 5)
		assert.False(t, ids[s.RequestID])
		ids[s.RequestID] = true
	}
}

func TestInfo(t *testing.T) {
	h := newHarness(nil)

	info := h.orch.Info()

	assert.Equal(t, workflow.NodeValidateRequest, info.EntryPoint)
	assert.Equal(t, workflow.AllIntents(), info.SupportedIntent)
	assert.Equal(t, []string{
		workflow.NodeValidateRequest,
		workflow.NodeClassifyIntent,
		workflow.NodeRoute,
		workflow.NodeRetrieveDocuments,
		workflow.NodeGenerateAnswer,
		workflow.NodeEvaluateAnswer,
		workflow.NodeResolveDoubt,
		workflow.NodeGenerateQuestions,
	}, info.Nodes)
}

func emptyEmbeddingErr() error {
	_, err := embedding.Vector(context.Background(), testutil.NewFakeEmbedder().Set("blank"), "blank", embedding.TaskRetrievalQuery)
	return err
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want workflow.ErrorKind
	}{
		{workflow.Validationf("x"), workflow.KindValidation},
		{context.Canceled, workflow.KindCancelled},
		{llm.ErrGenerationFailed, workflow.KindGeneration},
		{resilience.ErrCircuitOpen, workflow.KindGeneration},
		{embedding.ErrEmbeddingUnavailable, workflow.KindEmbedding},
		{emptyEmbeddingErr(), workflow.KindEmbedding},
		{errors.New("other"), workflow.KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), tt.err.Error())
	}
}
