package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"study-assistant-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one event. A returned error asks for redelivery.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber reads workflow events from the bus with a durable consumer.
type Subscriber struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumes []jetstream.ConsumeContext
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js}, nil
}

func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := EventFromMessage(msg.Subject(), msg.Data())
		if err != nil {
			_ = msg.Term()
			return
		}
		if meta, err := msg.Metadata(); err == nil {
			event.OccurredAt = meta.Timestamp
		}

		if err := handler(ctx, event); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.consumes = append(s.consumes, cc)
	return nil
}

// EventFromMessage rebuilds an event from its subject and JSON payload.
func EventFromMessage(subject string, data []byte) (events.BaseEvent, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return events.BaseEvent{}, fmt.Errorf("decode %s payload: %w", subject, err)
	}
	eventType := strings.ToUpper(strings.TrimPrefix(subject, SubjectPrefix+"."))
	return events.BaseEvent{Type: eventType, Data: payload}, nil
}

func (s *Subscriber) Close() {
	for _, cc := range s.consumes {
		cc.Stop()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
