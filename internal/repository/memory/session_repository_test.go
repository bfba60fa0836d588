package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-assistant-be/pkg/workflow"
)

func TestSessionRepository_KeepsLastState(t *testing.T) {
	repo := NewSessionRepository(time.Minute)
	user, session := uuid.New(), uuid.New()
	now := time.Now()

	first := workflow.NewState(uuid.New(), "first", user, session, workflow.TaskInputs{}, now)
	second := workflow.NewState(uuid.New(), "second", user, session, workflow.TaskInputs{}, now)

	repo.Save(first)
	repo.Save(second)

	got, ok := repo.Get(user, session)
	require.True(t, ok)
	assert.Equal(t, "second", got.Query)
	assert.Equal(t, 1, repo.Count())

	repo.Delete(user, session)
	_, ok = repo.Get(user, session)
	assert.False(t, ok)
}

func TestSessionRepository_SeparatesRequesters(t *testing.T) {
	repo := NewSessionRepository(time.Minute)
	owner, other, session := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	repo.Save(workflow.NewState(uuid.New(), "owner query", owner, session, workflow.TaskInputs{}, now))
	repo.Save(workflow.NewState(uuid.New(), "other query", other, session, workflow.TaskInputs{}, now))

	tests := []struct {
		name      string
		requester uuid.UUID
		want      string
	}{
		{"owner keeps own snapshot", owner, "owner query"},
		{"other requester sees own snapshot", other, "other query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := repo.Get(tt.requester, session)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Query)
		})
	}

	_, ok := repo.Get(uuid.New(), session)
	assert.False(t, ok)
	assert.Equal(t, 2, repo.Count())
}

func TestSessionRepository_Expires(t *testing.T) {
	repo := NewSessionRepository(20 * time.Millisecond)
	user, session := uuid.New(), uuid.New()
	repo.Save(workflow.NewState(uuid.New(), "q", user, session, workflow.TaskInputs{}, time.Now()))

	assert.Eventually(t, func() bool {
		_, ok := repo.Get(user, session)
		return !ok
	}, time.Second, 10*time.Millisecond)
}
