package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"whisper-server/internal/api/middleware"
	"whisper-server/internal/models"
	"whisper-server/internal/repositories/postgres"
	"whisper-server/internal/services"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type ChannelHandler struct {
	channels *services.ChannelService
}

func NewChannelHandler(channels *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// Create godoc
// @Summary Create a channel in a server
// @Tags channels
// @Security BearerAuth
// @Router /channels [post]
func (h *ChannelHandler) Create(c *gin.Context) {
	var req models.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.channels.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		if errors.Is(err, services.ErrNotAMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this server"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create channel"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListByServer godoc
// @Summary List a server's channels
// @Tags channels
// @Security BearerAuth
// @Router /channels/by-server/{serverId} [get]
func (h *ChannelHandler) ListByServer(c *gin.Context) {
	resp, err := h.channels.ListByServer(c.Request.Context(), middleware.UserID(c), c.Param("serverId"))
	if err != nil {
		if errors.Is(err, services.ErrNotAMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this server"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list channels"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Messages godoc
// @Summary Read channel message history
// @Tags channels
// @Security BearerAuth
// @Param before query string false "Only messages created before this RFC3339 timestamp"
// @Param limit query int false "Page size, max 100"
// @Router /channels/{id}/messages [get]
func (h *ChannelHandler) Messages(c *gin.Context) {
	before, limit, ok := historyParams(c)
	if !ok {
		return
	}

	resp, err := h.channels.ChannelMessages(c.Request.Context(), middleware.UserID(c), c.Param("id"), before, limit)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		case errors.Is(err, services.ErrNotAMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this server"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DMMessages godoc
// @Summary Read direct-message conversation history
// @Tags channels
// @Security BearerAuth
// @Router /conversations/{id}/messages [get]
func (h *ChannelHandler) DMMessages(c *gin.Context) {
	before, limit, ok := historyParams(c)
	if !ok {
		return
	}

	resp, err := h.channels.DMMessages(c.Request.Context(), c.Param("id"), before, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func historyParams(c *gin.Context) (*time.Time, int, bool) {
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before timestamp"})
			return nil, 0, false
		}
		before = &t
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return nil, 0, false
		}
		limit = n
	}
	return before, limit, true
}
