package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollsys-api/internal/service"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
	"github.com/noah-isme/enrollsys-api/pkg/response"
)

// PaymentHandler wires HTTP endpoints to the payment service.
type PaymentHandler struct {
	service *service.PaymentService
}

// NewPaymentHandler creates a new handler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// SetAmounts godoc
// @Summary Set fee amounts
// @Description Finance assigns the enlistment and tuition fee amounts
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Enlistment ID"
// @Param payload body service.SetAmountsRequest true "Fee amounts"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enlistments/{id}/payment/amounts [put]
func (h *PaymentHandler) SetAmounts(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SetAmountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee payload"))
		return
	}

	payment, err := h.service.SetAmounts(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payment, nil)
}

// Submit godoc
// @Summary Submit payment claim
// @Description Student reports a payment for finance confirmation
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Enlistment ID"
// @Param payload body service.SubmitPaymentRequest true "Payment claim"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enlistments/{id}/payment/submit [post]
func (h *PaymentHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	payment, err := h.service.SubmitPayment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payment, nil)
}

// Record godoc
// @Summary Record payment
// @Description Finance applies a confirmed payment to a fee bucket
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Enlistment ID"
// @Param payload body service.RecordPaymentRequest true "Payment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enlistments/{id}/payment/record [post]
func (h *PaymentHandler) Record(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	result, err := h.service.RecordPayment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Receipt godoc
// @Summary Download payment receipt
// @Description Renders the payment state of an enlistment as a PDF
// @Tags Payments
// @Produce application/pdf
// @Param id path string true "Enlistment ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /enlistments/{id}/payment/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id := c.Param("id")
	data, err := h.service.Receipt(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", data)
}
