package handler

import (
	"net/http"

	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct{ svc service.PaymentService }

func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// Cash godoc
// @Summary Pay the remaining due in cash
// @Description Tendered cash must cover the full remaining due; the surplus
// @Description comes back as change and the sale completes in one step.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param body body dto.CashPaymentRequest true "Tendered amount"
// @Success 200 {object} dto.PaymentResponse
// @Failure 422 {object} apperror.APIError
// @Router /v1/transactions/{id}/pay/cash [post]
func (h *PaymentHandler) Cash(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CashPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.ProcessCash(c.Request.Context(), tenantID, operatorID, id, req.ReceivedAmount)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Card godoc
// @Summary Pay the remaining due by card
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 502 {object} apperror.APIError
// @Router /v1/transactions/{id}/pay/card [post]
func (h *PaymentHandler) Card(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.ProcessCard(c.Request.Context(), tenantID, operatorID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Partial godoc
// @Summary Record one split-tender payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param body body dto.PartialPaymentRequest true "Payment data"
// @Success 200 {object} dto.PaymentResponse
// @Failure 422 {object} apperror.APIError
// @Router /v1/transactions/{id}/pay/partial [post]
func (h *PaymentHandler) Partial(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.PartialPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.AddPartial(c.Request.Context(), tenantID, operatorID, id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Finalize godoc
// @Summary Complete a fully paid transaction
// @Description Deducts inventory at most once per item. Partial deduction
// @Description failures leave the transaction open and report the failed
// @Description items for a scoped retry.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param body body dto.FinalizePaymentRequest false "Finalize options"
// @Success 200 {object} dto.TransactionResponse
// @Failure 409 {object} apperror.APIError
// @Failure 502 {object} apperror.APIError
// @Router /v1/transactions/{id}/finalize [post]
func (h *PaymentHandler) Finalize(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.FinalizePaymentRequest
	if c.Request.ContentLength > 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Finalize(c.Request.Context(), tenantID, operatorID, id, req.SkipInventoryDeduction)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refund godoc
// @Summary Record a missing refund for a payment of a voided transaction
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payment_id path string true "Payment ID"
// @Param body body dto.RefundRequest true "Refund reason"
// @Success 200 {object} dto.TransactionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/payments/{payment_id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	paymentID, ok := pathUUID(c, "payment_id")
	if !ok {
		return
	}
	var req dto.RefundRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Refund(c.Request.Context(), tenantID, actorID, paymentID, req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
