package transfer

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// invalidPINMessage is the single body used for unknown, expired and
// evicted PINs so callers cannot probe which case they hit.
const invalidPINMessage = "invalid or expired PIN"

// RegisterRoutes mounts transfer operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/transfers", handler.publish)
	group.GET("/transfers/:pin", handler.resolve)
	group.GET("/transfers/:pin/download", handler.download)
	group.POST("/maintenance/reap", handler.reap)
}

type httpHandler struct {
	service *Service
}

// transferResponse is the externally visible record shape. The storage
// handle stays internal.
type transferResponse struct {
	PIN              string    `json:"pin"`
	OriginalFilename string    `json:"original_filename"`
	SizeBytes        int64     `json:"size_bytes"`
	ContentType      string    `json:"content_type"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

func toResponse(rec Record) transferResponse {
	return transferResponse{
		PIN:              rec.PIN,
		OriginalFilename: rec.OriginalFilename,
		SizeBytes:        rec.SizeBytes,
		ContentType:      rec.ContentType,
		CreatedAt:        rec.CreatedAt,
		ExpiresAt:        rec.ExpiresAt,
	}
}

func (h *httpHandler) publish(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	defer f.Close()

	rec, err := h.service.Publish(
		c.Request.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		f,
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrPathUnsafe):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsafe filename"})
		case errors.Is(err, ErrFileTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		case errors.Is(err, ErrAllocationExhausted), errors.Is(err, ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to publish file"})
		}
		return
	}

	c.JSON(http.StatusCreated, toResponse(rec))
}

func (h *httpHandler) resolve(c *gin.Context) {
	rec, err := h.service.Resolve(c.Request.Context(), c.Param("pin"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrBlobMissing):
			c.JSON(http.StatusNotFound, gin.H{"error": invalidPINMessage})
		case errors.Is(err, ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve transfer"})
		}
		return
	}

	c.JSON(http.StatusOK, toResponse(rec))
}

func (h *httpHandler) download(c *gin.Context) {
	rec, reader, err := h.service.Fetch(c.Request.Context(), c.Param("pin"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrBlobMissing):
			c.JSON(http.StatusNotFound, gin.H{"error": invalidPINMessage})
		case errors.Is(err, ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to download file"})
		}
		return
	}
	defer reader.Close()

	c.Header("Content-Type", rec.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.OriginalFilename))
	c.Header("Content-Length", fmt.Sprintf("%d", rec.SizeBytes))

	if _, err := io.Copy(c.Writer, reader); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}

func (h *httpHandler) reap(c *gin.Context) {
	removed, err := h.service.Reap(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, try again"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reap transfers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reaped": removed})
}
