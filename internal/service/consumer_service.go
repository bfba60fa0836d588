package service

import (
	"context"

	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventSink is the external bus, satisfied by *nats.Publisher.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService relays workflow events from the in-process topic to every sink: the
// NATS bus and the websocket hub.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	sinks      []EventSink
	logger     logger.ILogger
}

// NewConsumerService accepts no sinks at all; events are then only logged.
func NewConsumerService(subscriber message.Subscriber, topicName string, log logger.ILogger, sinks ...EventSink) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		sinks:      sinks,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. The bus is a best-effort audit feed and a redelivery
// loop against an unreachable server would only spin.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error("EVENTS", "Dropping undecodable workflow event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	fields := map[string]interface{}{
		"type":       event.EventType(),
		"request_id": msg.Metadata.Get("request_id"),
	}
	if len(cs.sinks) == 0 {
		cs.logger.Debug("EVENTS", "Workflow event (no sink configured)", fields)
		return
	}

	for _, sink := range cs.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			cs.logger.Warn("EVENTS", "Relaying workflow event failed", map[string]interface{}{
				"type":       fields["type"],
				"request_id": fields["request_id"],
				"error":      err.Error(),
			})
		}
	}
	cs.logger.Debug("EVENTS", "Workflow event relayed", fields)
}
