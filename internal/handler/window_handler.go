package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollsys-api/internal/service"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
	"github.com/noah-isme/enrollsys-api/pkg/response"
)

// WindowHandler exposes the enrollment window.
type WindowHandler struct {
	service *service.WindowService
}

// NewWindowHandler creates a new handler.
func NewWindowHandler(svc *service.WindowService) *WindowHandler {
	return &WindowHandler{service: svc}
}

// Get godoc
// @Summary Get enrollment window
// @Tags Window
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /window [get]
func (h *WindowHandler) Get(c *gin.Context) {
	window, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Update godoc
// @Summary Update enrollment window
// @Description Finance opens or closes submissions
// @Tags Window
// @Accept json
// @Produce json
// @Param payload body service.UpdateWindowRequest true "Window state"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /window [put]
func (h *WindowHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid window payload"))
		return
	}

	window, err := h.service.Update(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, window, nil)
}
