package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/domain"
	"github.com/trialscout-server/internal/middleware"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamMaxMessage   = 64 << 10
)

// Stream frame types.
const (
	FrameMatch = "match"
	FrameError = "error"
)

// StreamFrame is one server-to-client websocket message.
type StreamFrame struct {
	Type  string                `json:"type"`
	Seq   int                   `json:"seq"`
	Data  *domain.MatchResponse `json:"data,omitempty"`
	Error *domain.APIError      `json:"error,omitempty"`
}

// streamHandler re-matches whenever the client sends an updated profile.
type streamHandler struct {
	service  MatchService
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newStreamHandler(svc MatchService, allowedOrigins []string, logger *logrus.Logger) *streamHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &streamHandler{
		service: svc,
		logger:  logger,
		conns:   make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (h *streamHandler) handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	conn.SetReadLimit(streamMaxMessage)

	h.track(conn)
	defer h.untrack(conn)

	correlationID := middleware.GetCorrelationID(c)
	logger := h.logger.WithField("correlation_id", correlationID)
	logger.Debug("Match stream opened")

	ctx := c.Request.Context()
	for seq := 1; ; seq++ {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Debug("Match stream read ended")
			}
			return
		}

		frame := h.rematch(ctx, seq, message, correlationID)
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			logger.WithError(err).Warn("Failed to write match frame")
			return
		}
	}
}

func (h *streamHandler) rematch(ctx context.Context, seq int, message []byte, correlationID string) StreamFrame {
	var profile domain.PatientProfile
	if err := json.Unmarshal(message, &profile); err != nil {
		return errorFrame(seq, domain.ErrCodeInvalidInput, "Invalid patient profile JSON", err, correlationID)
	}

	resp, err := h.service.Match(ctx, profile)
	if err != nil {
		var verr *domain.ValidationError
		if errors.Is(err, domain.ErrMissingCancerType) || errors.As(err, &verr) {
			return errorFrame(seq, domain.ErrCodeValidation, "Invalid patient profile", err, correlationID)
		}
		h.logger.WithField("correlation_id", correlationID).WithError(err).Error("Stream match failed")
		return errorFrame(seq, domain.ErrCodeInternalServer, "Internal server error", nil, correlationID)
	}

	resp.RequestID = correlationID
	return StreamFrame{Type: FrameMatch, Seq: seq, Data: resp}
}

func errorFrame(seq int, code, message string, cause error, correlationID string) StreamFrame {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return StreamFrame{
		Type:  FrameError,
		Seq:   seq,
		Error: domain.NewAPIError(code, message, details, correlationID),
	}
}

func (h *streamHandler) track(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *streamHandler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// closeAll sends a going-away close frame to every open stream. Shutdown
// does not track hijacked connections.
func (h *streamHandler) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
	}
}
