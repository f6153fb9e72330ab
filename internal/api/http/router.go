package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-chat/internal/api/http/handlers"
	"github.com/spec-kit/ticket-chat/internal/api/ws"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	Socket  *ws.Handler
}

// RegisterRoutes wires HTTP and WebSocket routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/tickets", cfg.Tickets.CreateTicket)
	app.Get("/tickets/:id", cfg.Tickets.GetTicket)
	app.Get("/tickets/:id/messages", cfg.Tickets.ListMessages)

	app.Get("/ws", cfg.Socket.Upgrade, cfg.Socket.Serve())
}
