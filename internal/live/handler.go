// Package live serves the WebSocket feed of a professional's mirrored
// position stream.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/washpoint/washpoint-backend/config"
	"github.com/washpoint/washpoint-backend/internal/realtime"
	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/middleware"
)

// SubscriptionChecker authorizes feed access. A caller may watch a feed when
// they are subscribed to the professional, or when it is their own feed.
type SubscriptionChecker interface {
	Exists(ctx context.Context, subscriberID, professionalID string) (bool, error)
}

// ServerMessage is the frame format written to clients.
type ServerMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

const (
	MessageTypeConnected = "connected"
	MessageTypePosition  = "position"
	MessageTypePong      = "pong"
)

// Handler upgrades feed requests and forwards mirrored position frames until
// the client disconnects.
type Handler struct {
	subscriber     realtime.Subscriber
	checker        SubscriptionChecker
	pingInterval   time.Duration
	writeTimeout   time.Duration
	allowedOrigins []string
	isDevelopment  bool
	log            *zap.SugaredLogger
}

func NewHandler(subscriber realtime.Subscriber, checker SubscriptionChecker, serverCfg *config.ServerConfig) *Handler {
	return &Handler{
		subscriber:     subscriber,
		checker:        checker,
		pingInterval:   30 * time.Second,
		writeTimeout:   10 * time.Second,
		allowedOrigins: serverCfg.AllowedOrigins,
		isDevelopment:  serverCfg.Environment == config.EnvDevelopment,
		log:            logger.GetLogger().Named("live"),
	}
}

// getAcceptOptions allows all origins in development and validates the
// configured origin patterns in production.
func (h *Handler) getAcceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if h.isDevelopment {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.allowedOrigins
	}
	return opts
}

// HandleLiveFeed handles GET /locations/:id/live.
func (h *Handler) HandleLiveFeed(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	professionalID := c.Param("id")
	if professionalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Professional ID is required"})
		return
	}

	if userID != professionalID {
		subscribed, err := h.checker.Exists(c.Request.Context(), userID, professionalID)
		if err != nil {
			h.log.Errorw("Failed to check subscription for live feed",
				"userID", userID,
				"professionalID", professionalID,
				"error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify subscription"})
			return
		}
		if !subscribed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not subscribed to this professional"})
			return
		}
	}

	conn, err := websocket.Accept(c.Writer, c.Request, h.getAcceptOptions())
	if err != nil {
		h.log.Errorw("Failed to accept WebSocket connection",
			"userID", userID,
			"error", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	frames, unsubscribe, err := h.subscriber.Subscribe(ctx, realtime.CurrentPath(professionalID))
	if err != nil {
		h.log.Errorw("Failed to subscribe to position feed",
			"professionalID", professionalID,
			"error", err)
		_ = conn.Close(websocket.StatusInternalError, "subscription failed")
		return
	}
	defer unsubscribe()

	if err := h.sendMessage(ctx, conn, ServerMessage{
		Type:    MessageTypeConnected,
		Payload: json.RawMessage(`{"professionalId":"` + professionalID + `"}`),
	}); err != nil {
		h.log.Warnw("Failed to send connected message", "userID", userID, "error", err)
		return
	}

	errCh := make(chan error, 3)
	go func() { errCh <- h.readLoop(ctx, conn) }()
	go func() { errCh <- h.writeLoop(ctx, conn, frames) }()
	go func() { errCh <- h.pingLoop(ctx, conn) }()

	err = <-errCh
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		h.log.Debugw("Live feed connection ended",
			"userID", userID,
			"professionalID", professionalID,
			"error", err)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "feed closed")
}

// readLoop drains client frames so pongs and close frames are processed.
// The feed is one-way; client payloads other than ping are ignored.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg ServerMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		if msg.Type == "ping" {
			_ = h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypePong})
		}
	}
}

// writeLoop forwards mirrored frames to the client.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, frames <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			err := h.sendMessage(ctx, conn, ServerMessage{
				Type:    MessageTypePosition,
				Payload: json.RawMessage(frame),
			})
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) sendMessage(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}
