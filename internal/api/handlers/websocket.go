package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"whisper-server/internal/services"
	"whisper-server/internal/ws"
)

// WSHandler authenticates and hands connections to the realtime layer.
type WSHandler struct {
	auth     *services.AuthService
	registry *ws.Registry
	handler  *ws.Handler
}

func NewWSHandler(auth *services.AuthService, registry *ws.Registry, handler *ws.Handler) *WSHandler {
	return &WSHandler{
		auth:     auth,
		registry: registry,
		handler:  handler,
	}
}

// HandleWebSocket godoc
// @Summary Establish the realtime WebSocket connection
// @Description The bearer token is passed as a query parameter because
// @Description browser WebSocket clients cannot set headers.
// @Tags websocket
// @Param token query string true "Bearer token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]interface{} "Missing or invalid token"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	// Reject before any registry or room state is touched.
	userID, err := h.auth.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws.ServeWS(h.registry, h.handler, c.Writer, c.Request, userID)
}
