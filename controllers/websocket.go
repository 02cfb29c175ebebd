package controllers

import (
	"log"

	"studioops_go/middleware"
	"studioops_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

type WebSocketController struct {
	hub    *websocket.Hub
	secret string
}

func NewWebSocketController(hub *websocket.Hub, secret string) *WebSocketController {
	return &WebSocketController{hub: hub, secret: secret}
}

// UpgradeGuard rejects non-upgrade requests before the handler runs.
func (wsc *WebSocketController) UpgradeGuard(c *fiber.Ctx) error {
	if fiberws.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"error": "Use the WebSocket endpoint: ws://<host>/ws?token=YOUR_JWT",
	})
}

// WebSocketHandler validates the token query parameter and attaches the
// connection to the hub.
func (wsc *WebSocketController) WebSocketHandler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("WebSocket handler panic: %v", r)
			}
		}()

		token := c.Query("token")
		if token == "" {
			log.Println("WebSocket connection rejected: missing token")
			c.WriteMessage(fiberws.CloseMessage, []byte("Missing token"))
			c.Close()
			return
		}

		claims, err := middleware.ParseToken(token, wsc.secret)
		if err != nil {
			log.Printf("WebSocket connection rejected: invalid token: %v", err)
			c.WriteMessage(fiberws.CloseMessage, []byte("Invalid token"))
			c.Close()
			return
		}

		log.Printf("WebSocket connection established for user %s", claims.UserID)
		wsc.hub.ServeFiberWS(c, claims.UserID)
	})
}

// GetWebSocketStats - GET /api/ws/stats
func (wsc *WebSocketController) GetWebSocketStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"connected_clients": wsc.hub.GetClientCount(),
		"connected_users":   wsc.hub.ConnectedUsers(),
		"status":            "active",
	})
}
