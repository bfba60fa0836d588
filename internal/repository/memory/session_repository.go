package memory

import (
	"time"

	"study-assistant-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps the last terminal workflow state per requester and
// session. Two requesters reusing one session id never see each other's state.
type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository keeps snapshots for ttl and purges expired ones every ttl/6.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, ttl/6),
	}
}

func sessionKey(requesterID, sessionID uuid.UUID) string {
	return requesterID.String() + ":" + sessionID.String()
}

func (r *SessionRepository) Save(state workflow.State) {
	r.cache.Set(sessionKey(state.RequesterID, state.SessionID), state, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(requesterID, sessionID uuid.UUID) (workflow.State, bool) {
	if x, found := r.cache.Get(sessionKey(requesterID, sessionID)); found {
		return x.(workflow.State), true
	}
	return workflow.State{}, false
}

func (r *SessionRepository) Delete(requesterID, sessionID uuid.UUID) {
	r.cache.Delete(sessionKey(requesterID, sessionID))
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
