package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollsys-api/internal/models"
	"github.com/noah-isme/enrollsys-api/internal/service"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
	"github.com/noah-isme/enrollsys-api/pkg/response"
)

// EnlistmentHandler wires HTTP endpoints to the enlistment workflow.
type EnlistmentHandler struct {
	service *service.EnlistmentService
}

// NewEnlistmentHandler creates a new handler.
func NewEnlistmentHandler(svc *service.EnlistmentService) *EnlistmentHandler {
	return &EnlistmentHandler{service: svc}
}

// Submit godoc
// @Summary Submit enlistment
// @Description Student submits a new enlistment for a term
// @Tags Enlistments
// @Accept json
// @Produce json
// @Param payload body service.SubmitEnlistmentRequest true "Enlistment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enlistments [post]
func (h *EnlistmentHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitEnlistmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enlistment payload"))
		return
	}

	detail, err := h.service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// List godoc
// @Summary List enlistments
// @Description List enlistments with optional filters; students see only their own
// @Tags Enlistments
// @Produce json
// @Param school_year query string false "School year label"
// @Param semester query string false "Semester name"
// @Param status query string false "Comma-separated statuses"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enlistments [get]
func (h *EnlistmentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.EnlistmentFilter{
		StudentID:  c.Query("student_id"),
		SchoolYear: c.Query("school_year"),
		Semester:   c.Query("semester"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				filter.Statuses = append(filter.Statuses, models.EnlistmentStatus(trimmed))
			}
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	enlistments, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enlistments, pagination)
}

// Detail godoc
// @Summary Get enlistment
// @Description Full enlistment snapshot with subjects and payment
// @Tags Enlistments
// @Produce json
// @Param id path string true "Enlistment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enlistments/{id} [get]
func (h *EnlistmentHandler) Detail(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	snapshot, err := h.service.Detail(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Preapprove godoc
// @Summary Pre-approve enlistment
// @Description Adviser forwards a submitted or returned enlistment to finance
// @Tags Enlistments
// @Produce json
// @Param id path string true "Enlistment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enlistments/{id}/preapprove [post]
func (h *EnlistmentHandler) Preapprove(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Preapprove(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Return godoc
// @Summary Return enlistment for revision
// @Description Adviser sends the enlistment back to the student with a reason
// @Tags Enlistments
// @Accept json
// @Produce json
// @Param id path string true "Enlistment ID"
// @Param payload body service.ReturnEnlistmentRequest true "Revision reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enlistments/{id}/return [post]
func (h *EnlistmentHandler) Return(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ReturnEnlistmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a revision reason is required"))
		return
	}

	detail, err := h.service.ReturnForRevision(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Review godoc
// @Summary Finance review
// @Description Finance clears the enlistment or places it on hold
// @Tags Enlistments
// @Produce json
// @Param id path string true "Enlistment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enlistments/{id}/review [post]
func (h *EnlistmentHandler) Review(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Review(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// FinalApprove godoc
// @Summary Final approval with subjects
// @Description Adviser attaches the subject list and opens the enlistment for payment
// @Tags Enlistments
// @Accept json
// @Produce json
// @Param id path string true "Enlistment ID"
// @Param payload body service.FinalApproveRequest true "Subject ids"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enlistments/{id}/final-approve [post]
func (h *EnlistmentHandler) FinalApprove(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.FinalApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "at least one subject id is required"))
		return
	}

	detail, err := h.service.FinalApprove(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}
