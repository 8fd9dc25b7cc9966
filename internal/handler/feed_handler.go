package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/events"
)

const feedPingInterval = 30 * time.Second

// FeedHandler streams a user's submission verdicts over a websocket.
type FeedHandler struct {
	hub    *events.Hub
	logger zerolog.Logger
}

// NewFeedHandler constructs the handler.
func NewFeedHandler(hub *events.Hub, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		hub:    hub,
		logger: logger.With().Str("component", "feed_handler").Logger(),
	}
}

// Register wires the feed endpoint; the router must be JWT protected.
func (h *FeedHandler) Register(router fiber.Router) {
	router.Use("/feed", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		userID := userIDFromContext(c)
		if userID == 0 {
			return fiber.ErrUnauthorized
		}
		c.Locals("feed_user_id", userID)
		return c.Next()
	})
	router.Get("/feed", websocket.New(h.serve))
}

func (h *FeedHandler) serve(conn *websocket.Conn) {
	userID, _ := conn.Locals("feed_user_id").(uint)
	correlation, _ := conn.Locals("correlation_id").(string)
	logger := h.logger.With().Uint("user_id", userID).Str("correlation_id", correlation).Logger()

	sub := h.hub.Subscribe(userID)
	defer sub.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Msg("verdict feed connected")
	defer logger.Info().Msg("verdict feed disconnected")

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("feed write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
