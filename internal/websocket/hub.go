package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "workflow_cluster_events"

// Hub tracks the open connections of every user and pushes finished-run events to them.
// With Redis configured, events reach the user's connections on every instance.
type Hub struct {
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string

	ready     chan struct{}
	readyOnce sync.Once

	logger logger.ILogger
}

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		ready:      make(chan struct{}),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	} else {
		h.markReady()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Debug("HUB", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.UserID]
			for i, c := range clients {
				if c == client {
					h.clients[client.UserID] = append(clients[:i:i], clients[i+1:]...)
					break
				}
			}
			if len(h.clients[client.UserID]) == 0 {
				delete(h.clients, client.UserID)
			}
			h.mu.Unlock()
			h.logger.Debug("HUB", "Client unregistered", map[string]interface{}{"user_id": client.UserID})
		}
	}
}

func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Ready is closed once the hub can receive events from other instances.
func (h *Hub) Ready() <-chan struct{} { return h.ready }

func (h *Hub) markReady() { h.readyOnce.Do(func() { close(h.ready) }) }

func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish delivers a workflow event to the requester's connections. It satisfies the
// consumer service's EventSink.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	target, _ := event.Payload()["requester_id"].(string)
	userID, err := uuid.Parse(target)
	if err != nil {
		return nil
	}

	data := Frame{Type: FrameEvent, Data: map[string]interface{}{
		"type":    event.EventType(),
		"payload": event.Payload(),
	}}.encode()
	h.deliverLocal(userID, data)

	if h.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(clusterMessage{Origin: h.instanceID, TargetUserID: userID.String(), Message: data})
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, clusterChannel, payload).Err()
}

// deliverLocal never blocks; a client whose buffer is full misses the frame.
func (h *Hub) deliverLocal(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("HUB", "Client send buffer full, dropping frame", map[string]interface{}{"user_id": userID})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Warn("HUB", "Redis subscription failed, cross-instance delivery disabled", map[string]interface{}{"error": err.Error()})
		h.markReady()
		return
	}
	h.markReady()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("HUB", "Unparseable cluster message", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			if uid, err := uuid.Parse(payload.TargetUserID); err == nil {
				h.deliverLocal(uid, payload.Message)
			}
		}
	}
}
