package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"whisper-server/internal/api/middleware"
	"whisper-server/internal/models"
	"whisper-server/internal/repositories/postgres"
	"whisper-server/internal/services"
)

type ServerHandler struct {
	servers *services.ServerService
}

func NewServerHandler(servers *services.ServerService) *ServerHandler {
	return &ServerHandler{servers: servers}
}

// Create godoc
// @Summary Create a server
// @Tags servers
// @Security BearerAuth
// @Router /servers [post]
func (h *ServerHandler) Create(c *gin.Context) {
	var req models.CreateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.servers.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create server"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary List servers the caller belongs to
// @Tags servers
// @Security BearerAuth
// @Router /servers [get]
func (h *ServerHandler) List(c *gin.Context) {
	resp, err := h.servers.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list servers"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Join godoc
// @Summary Join a server by invite code
// @Tags servers
// @Security BearerAuth
// @Router /servers/join [post]
func (h *ServerHandler) Join(c *gin.Context) {
	var req models.JoinServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.servers.Join(c.Request.Context(), middleware.UserID(c), req.InviteCode)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidInviteCode) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid invite code"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join server"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Members godoc
// @Summary List a server's members
// @Tags servers
// @Security BearerAuth
// @Router /servers/{id}/members [get]
func (h *ServerHandler) Members(c *gin.Context) {
	resp, err := h.servers.Members(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotAMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list members"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
