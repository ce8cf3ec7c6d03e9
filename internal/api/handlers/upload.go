package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"whisper-server/internal/storage"
)

const maxUploadSize = 25 << 20 // 25 MiB

// UploadHandler stores encrypted attachments and hands back short-lived
// download URLs. Disabled (404) when no object store is configured.
type UploadHandler struct {
	store *storage.ObjectStore
}

func NewUploadHandler(store *storage.ObjectStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// Upload godoc
// @Summary Upload an encrypted attachment
// @Tags uploads
// @Security BearerAuth
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	key, err := h.store.Upload(c.Request.Context(), file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

// Download godoc
// @Summary Get a short-lived download URL for an attachment
// @Tags uploads
// @Security BearerAuth
// @Router /uploads/{key} [get]
func (h *UploadHandler) Download(c *gin.Context) {
	url, err := h.store.PresignedURL(c.Request.Context(), c.Param("key"), 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve file"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
