package service

import (
	"context"
	"errors"
	"strings"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/money"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductService is the minimal catalog surface the register needs: create
// and list products, nothing more. Full catalog management lives elsewhere.
type ProductService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, tenantID, productID uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*dto.ProductListResponse, error)
}

type productService struct {
	products repository.ProductRepository
}

func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{products: products}
}

func (s *productService) Create(ctx context.Context, tenantID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, apperror.Validation("sku is required")
	}
	if req.UnitPrice.IsNegative() {
		return nil, apperror.Validation("unit price must not be negative")
	}
	if !money.ValidTaxRate(req.DefaultTaxRate) {
		return nil, apperror.Validation("tax rate %d is not a legal VAT rate", req.DefaultTaxRate)
	}
	if req.StockQty.IsNegative() {
		return nil, apperror.Validation("stock quantity must not be negative")
	}

	if _, err := s.products.FindBySKU(ctx, tenantID, sku); err == nil {
		return nil, apperror.Conflict("product with sku %q already exists", sku)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p := &model.Product{
		TenantID:       tenantID,
		SKU:            sku,
		Name:           strings.TrimSpace(req.Name),
		UnitPrice:      req.UnitPrice,
		DefaultTaxRate: req.DefaultTaxRate,
		StockQty:       req.StockQty,
		Active:         true,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return toProductResponse(p), nil
}

func (s *productService) Get(ctx context.Context, tenantID, productID uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, tenantID, productID)
	if err != nil {
		return nil, mapRepoErr(err, "product")
	}
	return toProductResponse(p), nil
}

func (s *productService) List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*dto.ProductListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	products, total, err := s.products.List(ctx, tenantID, page, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, *toProductResponse(&products[i]))
	}
	return &dto.ProductListResponse{Data: out, Total: total, Page: page, Limit: limit}, nil
}

func toProductResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:             p.ID.String(),
		SKU:            p.SKU,
		Name:           p.Name,
		UnitPrice:      p.UnitPrice,
		DefaultTaxRate: p.DefaultTaxRate,
		StockQty:       p.StockQty,
		Active:         p.Active,
	}
}
