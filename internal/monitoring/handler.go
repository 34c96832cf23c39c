package monitoring

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxPhotoSize = 20 << 20

// Handler handles HTTP requests for monitoring operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new monitoring handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers monitoring routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	monitoring := router.Group("/monitoring")
	{
		monitoring.GET("", h.listRecords)
		monitoring.POST("", h.createRecord)
		monitoring.DELETE("", h.clearRecords)

		monitoring.GET("/stats", h.getStats)
		monitoring.GET("/attention", h.getAttention)
		monitoring.GET("/recent", h.getRecent)
		monitoring.GET("/geojson", h.getSites)

		monitoring.GET("/:id", h.getRecord)
		monitoring.PUT("/:id", h.updateRecord)
		monitoring.DELETE("/:id", h.deleteRecord)
		monitoring.PATCH("/:id/verification", h.updateVerification)
		monitoring.PATCH("/:id/sync", h.updateSync)
		monitoring.PATCH("/:id/complete", h.completeRecord)
		monitoring.POST("/:id/photos", h.uploadPhoto)
	}
}

// listRecords handles GET /api/v1/monitoring
func (h *Handler) listRecords(c *gin.Context) {
	filter := Filter{
		ProjectID: c.Query("project_id"),
		DataType:  DataType(c.Query("data_type")),
	}
	if filter.DataType != "" && !filter.DataType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown data type"})
		return
	}

	records, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "Failed to list monitoring records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// createRecord handles POST /api/v1/monitoring
func (h *Handler) createRecord(c *gin.Context) {
	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.Create(c.Request.Context(), req.Record(c.GetString("user_id")))
	if err != nil {
		h.respondError(c, "Failed to create monitoring record", err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// clearRecords handles DELETE /api/v1/monitoring
func (h *Handler) clearRecords(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		h.respondError(c, "Failed to clear monitoring records", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getRecord handles GET /api/v1/monitoring/:id
func (h *Handler) getRecord(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get monitoring record", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// updateRecord handles PUT /api/v1/monitoring/:id. An unknown id is not an
// error; the response reports updated=false.
func (h *Handler) updateRecord(c *gin.Context) {
	var rec MonitoringRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec.ID = c.Param("id")

	updated, err := h.service.Update(c.Request.Context(), rec)
	if err != nil {
		h.respondError(c, "Failed to update monitoring record", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": rec.ID, "updated": updated})
}

// deleteRecord handles DELETE /api/v1/monitoring/:id
func (h *Handler) deleteRecord(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "Failed to delete monitoring record", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// updateVerification handles PATCH /api/v1/monitoring/:id/verification
func (h *Handler) updateVerification(c *gin.Context) {
	var req UpdateVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reviewer := req.Reviewer
	if reviewer == "" {
		reviewer = c.GetString("user_id")
	}

	rec, err := h.service.UpdateVerificationStatus(c.Request.Context(), c.Param("id"), req.Status, req.Note, reviewer)
	if err != nil {
		h.respondError(c, "Failed to update verification status", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// updateSync handles PATCH /api/v1/monitoring/:id/sync
func (h *Handler) updateSync(c *gin.Context) {
	var req UpdateSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.UpdateSyncStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, "Failed to update sync status", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// completeRecord handles PATCH /api/v1/monitoring/:id/complete
func (h *Handler) completeRecord(c *gin.Context) {
	completed := c.DefaultQuery("completed", "true") != "false"

	rec, err := h.service.SetCompleted(c.Request.Context(), c.Param("id"), completed)
	if err != nil {
		h.respondError(c, "Failed to complete monitoring record", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// uploadPhoto handles POST /api/v1/monitoring/:id/photos (multipart field "photo")
func (h *Handler) uploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoSize+1<<20)

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	if fileHeader.Size > maxPhotoSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo exceeds 20MB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	photo, err := h.service.AttachPhoto(c.Request.Context(), c.Param("id"), PhotoUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Caption:     c.PostForm("caption"),
		Body:        file,
	})
	if err != nil {
		h.respondError(c, "Failed to attach photo", err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

// getStats handles GET /api/v1/monitoring/stats
func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to compute monitoring stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// getSites handles GET /api/v1/monitoring/geojson
func (h *Handler) getSites(c *gin.Context) {
	filter := Filter{
		ProjectID: c.Query("project_id"),
		DataType:  DataType(c.Query("data_type")),
	}
	fc, err := h.service.Sites(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "Failed to build monitoring sites", err)
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

// getAttention handles GET /api/v1/monitoring/attention
func (h *Handler) getAttention(c *gin.Context) {
	records, err := h.service.RequiringAttention(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list records requiring attention", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// getRecent handles GET /api/v1/monitoring/recent?days=N
func (h *Handler) getRecent(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	records, err := h.service.Recent(c.Request.Context(), days)
	if err != nil {
		h.respondError(c, "Failed to list recent records", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrPhotosUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
