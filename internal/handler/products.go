package handler

import (
	"net/http"
	"strconv"

	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct{ svc service.ProductService }

func NewProductHandler(svc service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// Create godoc
// @Summary Create a catalog product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateProductRequest true "Product data"
// @Success 201 {object} dto.ProductResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// @Summary Get one product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {object} dto.ProductResponse
// @Failure 404 {object} apperror.APIError
// @Router /v1/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
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

// List godoc
// @Summary List products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.ProductListResponse
// @Router /v1/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	resp, err := h.svc.List(c.Request.Context(), tenantID, page, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
