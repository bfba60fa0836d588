package websocket

import (
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type Handler struct {
	hub    *Hub
	runner QueryRunner
	logger logger.ILogger
}

func NewHandler(hub *Hub, runner QueryRunner, log logger.ILogger) *Handler {
	return &Handler{hub: hub, runner: runner, logger: log}
}

// RegisterRoutes mounts GET /workflow/v1/ws. Browsers cannot set headers on a websocket
// handshake, so the token may also come as ?token=.
func (h *Handler) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/workflow/v1/ws", tokenFromQuery, auth, requireUpgrade, websocket.New(h.serve))
}

func tokenFromQuery(ctx *fiber.Ctx) error {
	if ctx.Get("Authorization") == "" {
		if token := ctx.Query("token"); token != "" {
			ctx.Request().Header.Set("Authorization", "Bearer "+token)
		}
	}
	return ctx.Next()
}

func requireUpgrade(ctx *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(ctx) {
		return ctx.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *Handler) serve(conn *websocket.Conn) {
	userID, err := serverutils.UserIDFromLocals(conn.Locals("user_id"))
	if err != nil {
		conn.Close()
		return
	}
	ServeWs(h.hub, conn, userID, h.runner, h.logger)
}

// ServeWs registers the connection and pumps it until the peer goes away.
func ServeWs(hub *Hub, conn *websocket.Conn, userID uuid.UUID, runner QueryRunner, log logger.ILogger) {
	client := NewClient(hub, conn, userID, runner, log)
	hub.Register(client)

	go client.writePump()
	client.readPump()
}
