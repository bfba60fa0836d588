package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/events"
	"study-assistant-be/pkg/workflow"
)

type sinkRecorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (s *sinkRecorder) Publish(_ context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *sinkRecorder) received() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func doneState(session uuid.UUID) workflow.State {
	now := time.Now()
	return workflow.NewState(uuid.New(), "q", uuid.New(), session, workflow.TaskInputs{}, now).
		WithIntent(workflow.IntentResult{Intent: workflow.IntentAnswerGeneration, Confidence: 0.9, Method: workflow.MethodRule}).
		Complete(workflow.Output{Intent: workflow.IntentAnswerGeneration, Text: "x"}, now.Add(time.Second))
}

func TestEventRelay_PublishesToSink(t *testing.T) {
	ps := newPubSub(t)
	sink := &sinkRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := NewConsumerService(ps, "workflow-events", logger.NewNopLogger(), sink)
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("workflow-events", ps)
	state := doneState(uuid.New())
	require.NoError(t, publisher.PublishRun(ctx, state))

	require.Eventually(t, func() bool { return len(sink.received()) == 1 }, time.Second, 5*time.Millisecond)
	got := sink.received()[0]
	assert.Equal(t, events.TypeWorkflowCompleted, got.EventType())
	assert.Equal(t, state.RequestID.String(), got.Payload()["request_id"])
	assert.Equal(t, "answer_generation", got.Payload()["intent"])
}

func TestEventRelay_SinkFailureDoesNotStopOthers(t *testing.T) {
	ps := newPubSub(t)
	broken := &sinkRecorder{err: errors.New("nats: no responders")}
	healthy := &sinkRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, NewConsumerService(ps, "workflow-events", logger.NewNopLogger(), broken, healthy).Consume(ctx))
	publisher := NewPublisherService("workflow-events", ps)

	require.NoError(t, publisher.PublishRun(ctx, doneState(uuid.New())))
	require.NoError(t, publisher.PublishRun(ctx, doneState(uuid.New())))

	assert.Eventually(t, func() bool { return len(healthy.received()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, broken.received(), 2)
}

func TestEventRelay_DropsUndecodable(t *testing.T) {
	ps := newPubSub(t)
	sink := &sinkRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, NewConsumerService(ps, "workflow-events", logger.NewNopLogger(), sink).Consume(ctx))
	require.NoError(t, ps.Publish("workflow-events", message.NewMessage(watermill.NewUUID(), []byte("garbage"))))
	require.NoError(t, NewPublisherService("workflow-events", ps).PublishRun(ctx, doneState(uuid.New())))

	require.Eventually(t, func() bool { return len(sink.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, events.TypeWorkflowCompleted, sink.received()[0].EventType())
}
