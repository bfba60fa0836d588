package websocket

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"study-assistant-be/internal/dto"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/pkg/serverutils"
	"study-assistant-be/pkg/llm"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// QueryRunner is satisfied by service.IWorkflowService.
type QueryRunner interface {
	Query(ctx context.Context, userId uuid.UUID, req *dto.WorkflowQueryRequest, onToken llm.TokenSink) *dto.WorkflowQueryResponse
}

// Client is one websocket connection. It runs at most one query at a time and streams
// its tokens back as chunk frames.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID uuid.UUID

	// Send is buffered and never closed; writers give up once ctx is done.
	Send chan []byte

	runner QueryRunner
	logger logger.ILogger
	busy   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, runner QueryRunner, log logger.ILogger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, 256),
		runner: runner,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// handleMessage parses one inbound frame and starts its query.
func (c *Client) handleMessage(raw []byte) {
	var req dto.WorkflowQueryRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.enqueue(Frame{Type: FrameError, Data: map[string]string{"message": "Malformed request"}})
		return
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		c.enqueue(Frame{Type: FrameError, Data: map[string]string{"message": err.Error()}})
		return
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.enqueue(Frame{Type: FrameError, Data: map[string]string{"message": "A query is already running on this connection"}})
		return
	}

	go func() {
		defer c.busy.Store(false)
		c.run(&req)
	}()
}

func (c *Client) run(req *dto.WorkflowQueryRequest) {
	c.enqueue(Frame{Type: FrameStatus, Data: map[string]string{"status": "processing"}})

	res := c.runner.Query(c.ctx, c.UserID, req, func(chunk string) error {
		return c.enqueue(Frame{Type: FrameChunk, Data: map[string]string{"text": chunk}})
	})

	if res.Error != nil {
		c.enqueue(Frame{Type: FrameError, Data: res})
		return
	}
	c.enqueue(Frame{Type: FrameDone, Data: res})
}

func (c *Client) enqueue(f Frame) error {
	select {
	case c.Send <- f.encode():
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

func (c *Client) close() {
	c.cancel()
	if c.Hub != nil {
		c.Hub.Unregister(c)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WEBSOCKET", "Connection closed unexpectedly", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
