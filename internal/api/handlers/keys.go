package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"whisper-server/internal/api/middleware"
	"whisper-server/internal/models"
	"whisper-server/internal/repositories/postgres"
)

// KeysHandler serves the E2E key exchange: users publish prekey bundles,
// peers fetch them to start encrypted sessions.
type KeysHandler struct {
	users *postgres.UserRepository
}

func NewKeysHandler(users *postgres.UserRepository) *KeysHandler {
	return &KeysHandler{users: users}
}

// Publish godoc
// @Summary Publish the caller's prekey bundle
// @Tags keys
// @Security BearerAuth
// @Router /keys [put]
func (h *KeysHandler) Publish(c *gin.Context) {
	var req models.PublishPrekeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.UpdatePrekeys(c.Request.Context(), middleware.UserID(c), &req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish keys"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Bundle godoc
// @Summary Fetch a user's prekey bundle, consuming one one-time prekey
// @Tags keys
// @Security BearerAuth
// @Router /keys/{userId} [get]
func (h *KeysHandler) Bundle(c *gin.Context) {
	bundle, err := h.users.TakePrekeyBundle(c.Request.Context(), c.Param("userId"))
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, postgres.ErrNoPrekeyBundle):
			c.JSON(http.StatusNotFound, gin.H{"error": "user has no published keys"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch keys"})
		}
		return
	}
	c.JSON(http.StatusOK, bundle)
}
