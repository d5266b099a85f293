package image

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paraflux/mdimg/internal/auth"
	"github.com/paraflux/mdimg/internal/blob"
	"github.com/paraflux/mdimg/internal/metrics"
)

// RegisterRoutes mounts image operations under the provided router group.
// The group is expected to run behind auth.Identify; handlers never accept a
// user identifier from the client.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/images/upload-url", handler.requestUploadTarget)
	group.POST("/images", handler.finalizeUpload)
	group.GET("/images", handler.listImages)
}

type httpHandler struct {
	service *Service
}

type finalizeRequest struct {
	BlobID string `json:"blob_id" binding:"required"`
	Format string `json:"format" binding:"required"`
}

func (h *httpHandler) requestUploadTarget(c *gin.Context) {
	target, err := h.service.RequestUploadTarget(c.Request.Context(), callerFrom(c))
	if err != nil {
		switch err {
		case ErrUnauthenticated:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required to generate upload targets"})
		case ErrRateLimitExceeded:
			metrics.ObserveRateLimited()
			c.Header("Retry-After", "60")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, please wait before uploading more images"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate upload target"})
		}
		return
	}

	c.JSON(http.StatusOK, target)
}

func (h *httpHandler) finalizeUpload(c *gin.Context) {
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.FinalizeUpload(c.Request.Context(), callerFrom(c), req.BlobID, req.Format)
	if err != nil {
		switch err {
		case ErrUnauthenticated:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required to save images"})
		case ErrInvalidFormat:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format, only svg and png are supported"})
		case blob.ErrBlobNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid blob id, file not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save image"})
		}
		return
	}

	metrics.ObserveUploadFinalized(string(rec.Format))
	c.JSON(http.StatusCreated, rec)
}

func (h *httpHandler) listImages(c *gin.Context) {
	images, err := h.service.ListImages(c.Request.Context(), callerFrom(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list images"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"images": images})
}

func callerFrom(c *gin.Context) Caller {
	id, _, ok := auth.RequireUser(c)
	if !ok {
		return Caller{}
	}
	return Caller{UserID: id}
}
