package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/guardline/workforce-service/internal/auth"
	"github.com/guardline/workforce-service/internal/gateway"
)

// GatewayHandler upgrades authenticated requests to websocket sessions.
type GatewayHandler struct {
	hub *gateway.Hub
}

// NewGatewayHandler constructs handler.
func NewGatewayHandler(hub *gateway.Hub) *GatewayHandler {
	return &GatewayHandler{hub: hub}
}

// Upgrade rejects plain HTTP requests on the websocket route.
func (h *GatewayHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve GET /ws. Runs for the lifetime of the connection.
func (h *GatewayHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		principal, ok := auth.PrincipalFromConn(conn)
		if !ok || principal.User == nil {
			_ = conn.Close()
			return
		}
		h.hub.Serve(principal.User.ID, conn)
	})
}
