package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollsys-api/internal/service"
	"github.com/noah-isme/enrollsys-api/pkg/response"
)

// CatalogHandler serves the reference data used by enlistment forms.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Subjects godoc
// @Summary List subjects
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/subjects [get]
func (h *CatalogHandler) Subjects(c *gin.Context) {
	subjects, err := h.service.Subjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Categories godoc
// @Summary List categories
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/categories [get]
func (h *CatalogHandler) Categories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Programs godoc
// @Summary List programs
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/programs [get]
func (h *CatalogHandler) Programs(c *gin.Context) {
	programs, err := h.service.Programs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, nil)
}

// SchoolYears godoc
// @Summary List school years
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/school-years [get]
func (h *CatalogHandler) SchoolYears(c *gin.Context) {
	years, err := h.service.SchoolYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// Semesters godoc
// @Summary List semesters
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/semesters [get]
func (h *CatalogHandler) Semesters(c *gin.Context) {
	semesters, err := h.service.Semesters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semesters, nil)
}
