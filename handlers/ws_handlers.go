package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/plateful/plateful-server/middleware"
	"github.com/plateful/plateful-server/utils"
	"github.com/plateful/plateful-server/ws"
)

// WebSocketUpgrade gates the subscription endpoint: only authenticated
// websocket upgrade requests pass through.
func WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if middleware.Subject(c) == "" {
			return utils.SendUnauthorized(c, "authentication required")
		}
		return c.Next()
	}
}

// HandleWebSocket registers the connection with the hub and blocks until the
// client disconnects. The hub pushes every change to records owned by the
// connection's subject.
func HandleWebSocket(hub *ws.Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		subject, _ := conn.Locals(middleware.SubjectKey).(string)
		if subject == "" {
			conn.Close()
			return
		}

		hub.Register(conn, subject)
		hub.HandleConnection(conn)
	})
}
