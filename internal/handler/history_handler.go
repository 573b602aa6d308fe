package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollsys-api/internal/service"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
	"github.com/noah-isme/enrollsys-api/pkg/response"
)

// HistoryHandler exposes the audit trail endpoints.
type HistoryHandler struct {
	service *service.HistoryService
}

// NewHistoryHandler creates a new handler.
func NewHistoryHandler(svc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

// Recent godoc
// @Summary Recent history
// @Description Newest workflow events across all enlistments
// @Tags History
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /history [get]
func (h *HistoryHandler) Recent(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	entries, err := h.service.ListRecent(c.Request.Context(), actor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// ByEnlistment godoc
// @Summary Enlistment history
// @Description One enlistment's audit trail, newest first
// @Tags History
// @Produce json
// @Param id path string true "Enlistment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enlistments/{id}/history [get]
func (h *HistoryHandler) ByEnlistment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.service.ListByEnlistment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportCSV godoc
// @Summary Export history
// @Description Download the recent audit trail as CSV
// @Tags History
// @Produce text/csv
// @Param limit query int false "Max entries"
// @Success 200 {file} binary
// @Router /history/export [get]
func (h *HistoryHandler) ExportCSV(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	data, err := h.service.ExportCSV(c.Request.Context(), actor, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="history.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
