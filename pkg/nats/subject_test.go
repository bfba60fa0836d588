package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant-be/pkg/events"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "workflow.workflow_completed", Subject(events.TypeWorkflowCompleted))
	assert.Equal(t, "workflow.workflow_failed", Subject(events.TypeWorkflowFailed))
}

func TestEventFromMessage(t *testing.T) {
	e, err := EventFromMessage(Subject(events.TypeWorkflowFailed), []byte(`{"error_kind":"cancelled"}`))
	require.NoError(t, err)
	assert.Equal(t, events.TypeWorkflowFailed, e.EventType())
	assert.Equal(t, "cancelled", e.Payload()["error_kind"])

	_, err = EventFromMessage("workflow.x", []byte("{"))
	assert.Error(t, err)
}
