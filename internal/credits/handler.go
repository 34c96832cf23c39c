package credits

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/ledger-backend/internal/reports/export"
)

// Handler handles HTTP requests for credit operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new credits handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers credit routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	credits := router.Group("/credits")
	{
		credits.GET("", h.listCredits)
		credits.POST("", h.createCredit)
		credits.DELETE("", h.clearCredits)

		credits.GET("/stats", h.getStats)
		credits.GET("/stats/cached", h.getCachedStats)
		credits.GET("/batch-id/next", h.nextBatchID)
		credits.GET("/export", h.exportCredits)

		credits.GET("/:id", h.getCredit)
		credits.PUT("/:id", h.updateCredit)
		credits.DELETE("/:id", h.deleteCredit)
		credits.PATCH("/:id/status", h.updateStatus)
		credits.PATCH("/:id/blockchain", h.updateBlockchain)
		credits.POST("/:id/tokenize", h.tokenize)
		credits.GET("/:id/prediction", h.predict)
	}
}

// listCredits handles GET /api/v1/credits
func (h *Handler) listCredits(c *gin.Context) {
	filter := Filter{
		ProjectID: c.Query("project_id"),
		Status:    Status(c.Query("status")),
		Query:     c.Query("q"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	records, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "Failed to list credits", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": records, "count": len(records)})
}

// createCredit handles POST /api/v1/credits
func (h *Handler) createCredit(c *gin.Context) {
	var req CreateCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.Create(c.Request.Context(), req.Record())
	if err != nil {
		h.respondError(c, "Failed to create credit", err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// clearCredits handles DELETE /api/v1/credits
func (h *Handler) clearCredits(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		h.respondError(c, "Failed to clear credits", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getCredit handles GET /api/v1/credits/:id
func (h *Handler) getCredit(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get credit", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// updateCredit handles PUT /api/v1/credits/:id. An unknown id is not an
// error; the response reports updated=false.
func (h *Handler) updateCredit(c *gin.Context) {
	var rec CreditRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec.ID = c.Param("id")

	updated, err := h.service.Update(c.Request.Context(), rec)
	if err != nil {
		h.respondError(c, "Failed to update credit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": rec.ID, "updated": updated})
}

// deleteCredit handles DELETE /api/v1/credits/:id
func (h *Handler) deleteCredit(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "Failed to delete credit", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// updateStatus handles PATCH /api/v1/credits/:id/status
func (h *Handler) updateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, "Failed to update credit status", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// updateBlockchain handles PATCH /api/v1/credits/:id/blockchain
func (h *Handler) updateBlockchain(c *gin.Context) {
	var req UpdateBlockchainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	updated, err := h.service.UpdateBlockchainInfo(c.Request.Context(), id, req.TransactionHash, req.BlockchainStatus)
	if err != nil {
		h.respondError(c, "Failed to update blockchain info", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "updated": updated})
}

// tokenize handles POST /api/v1/credits/:id/tokenize
func (h *Handler) tokenize(c *gin.Context) {
	rec, err := h.service.Tokenize(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to tokenize credit", err)
		return
	}
	c.JSON(http.StatusAccepted, rec)
}

// predict handles GET /api/v1/credits/:id/prediction
func (h *Handler) predict(c *gin.Context) {
	p, err := h.service.Predict(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to predict credits", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// getStats handles GET /api/v1/credits/stats
func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to compute credit stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// getCachedStats handles GET /api/v1/credits/stats/cached
func (h *Handler) getCachedStats(c *gin.Context) {
	stats, err := h.service.CachedStats(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to read cached credit stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// nextBatchID handles GET /api/v1/credits/batch-id/next
func (h *Handler) nextBatchID(c *gin.Context) {
	next, err := h.service.NextBatchID(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to compute batch id", err)
		return
	}
	last, err := h.service.LastBatchID(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to read last batch id", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_batch_id": next, "last_batch_id": last})
}

// exportCredits handles GET /api/v1/credits/export?format=csv|xlsx|pdf
func (h *Handler) exportCredits(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to load credits for export", err)
		return
	}

	now := time.Now()
	filename := format.Filename("credits-" + now.Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)

	if err := export.Write(c.Writer, format, ExportTable(records, now)); err != nil {
		h.logger.Error("Failed to write credit export", zap.String("format", string(format)), zap.Error(err))
	}
}

func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAlreadyTokenized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrChainUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
