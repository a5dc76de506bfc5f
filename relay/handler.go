package relay

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cagkan/chatty"
	"github.com/gin-gonic/gin"
)

// Handler exposes the relay over HTTP.
type Handler struct {
	relay  *Relay
	logger *slog.Logger
}

func NewHandler(relay *Relay, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{relay: relay, logger: logger}
}

// Register mounts the chat routes on the given group. The group is
// expected to carry the identity middleware.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/chat/send", h.SendMessage)
	g.GET("/chat/:id", h.GetConversation)
}

// NewRouter builds a gin engine with identity middleware and the chat
// routes mounted under /api.
func NewRouter(relay *Relay, jwtSecret string, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	handler := NewHandler(relay, logger)
	api := router.Group("/api")
	api.Use(Identity(jwtSecret))
	handler.Register(api)
	return router
}

// SendMessage runs one turn. A 200 with a streaming body is committed
// only once the turn has started; every pre-stream failure produces a
// JSON error instead.
func (h *Handler) SendMessage(c *gin.Context) {
	callerID := c.GetString(identityKey)

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	turn, err := h.relay.StartTurn(c.Request.Context(), callerID, req)
	if err != nil {
		status, msg := statusForError(err)
		h.logger.Warn("turn rejected", "status", status, "error", err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	h.relay.StreamTurn(c.Request.Context(), turn, c.Writer, c.Writer)
}

// GetConversation returns the persisted history, used by clients to
// reload the authoritative state after navigation.
func (h *Handler) GetConversation(c *gin.Context) {
	callerID := c.GetString(identityKey)

	conversation, err := h.relay.store.GetConversation(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		status, msg := statusForError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, conversation)
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, chatty.ErrForbidden):
		return http.StatusForbidden, "you do not own this conversation"
	case errors.Is(err, chatty.ErrNotFound):
		return http.StatusNotFound, "conversation not found"
	case errors.Is(err, ErrEmptyMessage):
		return http.StatusBadRequest, ErrEmptyMessage.Error()
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, "completion service unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
