package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/store"
	"github.com/roomcast/roomcast-server/web"
)

// Handlers provides the HTTP endpoints in front of the registry and relay.
type Handlers struct {
	registry *core.Registry
	relay    *core.Relay
	log      *zerolog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(registry *core.Registry, relay *core.Relay, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		registry: registry,
		relay:    relay,
		log:      logger,
	}
}

// CreateRoomRequest represents the create-room request body (form or JSON).
type CreateRoomRequest struct {
	RoomName string `form:"roomName" json:"roomName" binding:"required"`
	UserName string `form:"userName" json:"userName" binding:"required"`
}

// SendMessageRequest represents the send-message request body (form or JSON).
type SendMessageRequest struct {
	UserName string `form:"userName" json:"userName" binding:"required"`
	Message  string `form:"message" json:"message" binding:"required"`
	RoomName string `form:"roomName" json:"roomName" binding:"required"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error any `json:"error"`
}

// Health handles liveness probes.
// GET /healthz
func (h *Handlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// CreateRoom ensures the room's backing collection exists and redirects the
// user into it. Creating a room that already exists is a no-op redirect.
// POST /create-room
func (h *Handlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create-room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "roomName and userName are required"})
		return
	}
	if !store.ValidRoomName(req.RoomName) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room name"})
		return
	}

	if err := h.registry.EnsureRoomExists(c.Request.Context(), req.RoomName); err != nil {
		h.log.Error().Err(err).Str("room", req.RoomName).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: rawStoreError(err)})
		return
	}

	c.Redirect(http.StatusSeeOther, "/"+req.RoomName+"?user="+url.QueryEscape(req.UserName))
}

// SendMessage publishes a message into a room: durable append first, then
// fan-out. The store receipt is returned verbatim on success.
// POST /send-message
func (h *Handlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send-message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "userName, message and roomName are required"})
		return
	}
	if !store.ValidRoomName(req.RoomName) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room name"})
		return
	}

	receipt, err := h.relay.Publish(c.Request.Context(), req.RoomName, req.UserName, req.Message)
	if err != nil {
		h.log.Error().Err(err).Str("room", req.RoomName).Msg("failed to publish message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: rawStoreError(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": receipt})
}

// RoomRoute serves `GET /{room}`: the join handshake for websocket upgrade
// requests, the embedded chat page for everything else.
func (h *Handlers) RoomRoute(ws *WSHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}

		room := strings.Trim(c.Request.URL.Path, "/")
		if !store.ValidRoomName(room) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}

		if isWebSocketUpgrade(c.Request) {
			ws.Serve(c.Writer, c.Request, room)
			return
		}

		c.Data(http.StatusOK, "text/html; charset=utf-8", web.ChatRoomPage)
	}
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// rawStoreError keeps the store's status and body intact in error responses
// so a failing create or append is diagnosable from the client side.
func rawStoreError(err error) any {
	var se *store.StatusError
	if errors.As(err, &se) {
		return se
	}
	return err.Error()
}
