package ws

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/auth"
	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/observability"
)

const identityLocal = "ws_identity"

// Handler owns the upgrade endpoint and per-connection lifecycle.
type Handler struct {
	hub     *chat.Hub
	router  *chat.Router
	tokens  *auth.TokenManager
	cfg     config.WebSocketConfig
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewHandler constructs the handler.
func NewHandler(hub *chat.Hub, router *chat.Router, tokens *auth.TokenManager, cfg config.WebSocketConfig, metrics *observability.Metrics, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, router: router, tokens: tokens, cfg: cfg, metrics: metrics, logger: logger}
}

// Upgrade gates the endpoint to WebSocket requests and resolves the caller
// identity before the protocol switch. With a configured secret the token
// must parse; otherwise the query-supplied identity is trusted as is.
func (h *Handler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	identity := auth.Identity{
		UserID:   c.Query("userId"),
		UserType: c.Query("userType"),
		UserName: c.Query("userName"),
	}
	if h.tokens.Enabled() {
		token := c.Query("token")
		if token == "" {
			return fiber.ErrUnauthorized
		}
		parsed, err := h.tokens.ParseToken(token)
		if err != nil {
			h.logger.Warn("handshake token rejected", zap.Error(err))
			return fiber.ErrUnauthorized
		}
		identity = parsed
	}

	c.Locals(identityLocal, identity)
	return c.Next()
}

// Serve runs one connection to completion.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		identity, _ := conn.Locals(identityLocal).(auth.Identity)

		session := chat.NewSession(conn, h.cfg, h.logger)
		h.hub.Register(session)
		h.metrics.ConnectionOpened()
		h.logger.Info("client connected",
			zap.String("connection_id", session.ID()),
			zap.String("user_id", identity.UserID))

		go session.WritePump()

		ctx := context.Background()
		session.ReadLoop(func(raw []byte) {
			h.router.Dispatch(ctx, session, raw)
		})

		// Read loop exit means the connection is gone: run the exact same
		// cleanup an explicit leave would have done for every joined ticket.
		h.router.HandleDisconnect(session)
		h.hub.Unregister(session)
		session.Close()
		h.metrics.ConnectionClosed()
		h.logger.Info("client disconnected", zap.String("connection_id", session.ID()))
	})
}
