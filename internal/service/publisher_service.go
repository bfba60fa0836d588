package service

import (
	"context"
	"fmt"

	"study-assistant-be/pkg/events"
	"study-assistant-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IPublisherService hands finished runs to the in-process event bus. The request path
// never waits on the external bus.
type IPublisherService interface {
	PublishRun(ctx context.Context, state workflow.State) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) PublishRun(ctx context.Context, state workflow.State) error {
	payload, err := events.Encode(events.NewWorkflowEvent(state))
	if err != nil {
		return fmt.Errorf("encode workflow event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("request_id", state.RequestID.String())

	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		return fmt.Errorf("publish workflow event: %w", err)
	}
	return nil
}
