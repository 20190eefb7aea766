package handler

import (
	"net/http"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/service"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct{ svc service.CartService }

func NewTransactionHandler(svc service.CartService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

// Create godoc
// @Summary Start a new sale transaction in an open session
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateTransactionRequest true "Session reference"
// @Success 201 {object} dto.TransactionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), tenantID, operatorID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary Get one transaction with items, payments and refunds
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} apperror.APIError
// @Router /v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListBySession godoc
// @Summary List all transactions of a session
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param session_id path string true "Session ID"
// @Success 200 {array} dto.TransactionResponse
// @Router /v1/sessions/{session_id}/transactions [get]
func (h *TransactionHandler) ListBySession(c *gin.Context) {
	sessionID, ok := pathUUID(c, "session_id")
	if !ok {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListBySession(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddItem godoc
// @Summary Add a line item to an in-progress transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param body body dto.AddItemRequest true "Item data"
// @Success 200 {object} dto.TransactionResponse
// @Failure 422 {object} apperror.APIError
// @Router /v1/transactions/{id}/items [post]
func (h *TransactionHandler) AddItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AddItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.AddItem(c.Request.Context(), tenantID, id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateItem godoc
// @Summary Change quantity or discount of a line item
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param item_id path string true "Item ID"
// @Param body body dto.UpdateItemRequest true "Fields to change"
// @Success 200 {object} dto.TransactionResponse
// @Failure 422 {object} apperror.APIError
// @Router /v1/transactions/{id}/items/{item_id} [patch]
func (h *TransactionHandler) UpdateItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.UpdateItem(c.Request.Context(), tenantID, id, itemID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RemoveItem godoc
// @Summary Remove a line item
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param item_id path string true "Item ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/transactions/{id}/items/{item_id} [delete]
func (h *TransactionHandler) RemoveItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.RemoveItem(c.Request.Context(), tenantID, id, itemID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetCustomer godoc
// @Summary Attach or detach a customer reference
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param body body dto.SetCustomerRequest true "Customer reference (null detaches)"
// @Success 200 {object} dto.TransactionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/transactions/{id}/customer [put]
func (h *TransactionHandler) SetCustomer(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.SetCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperror.New("invalid JSON: "+err.Error()))
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.SetCustomer(c.Request.Context(), tenantID, id, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Void godoc
// @Summary Void a transaction, refunding captured payments and restoring stock
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param body body dto.VoidTransactionRequest true "Void reason"
// @Success 200 {object} dto.TransactionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/transactions/{id}/void [post]
func (h *TransactionHandler) Void(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.VoidTransactionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Void(c.Request.Context(), tenantID, operatorID, id, req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
