package service

import (
	"context"
	"errors"

	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type stockService struct {
	products repository.ProductRepository
}

// NewStockService returns the gorm-backed Inventory implementation.
func NewStockService(products repository.ProductRepository) Inventory {
	return &stockService{products: products}
}

func (s *stockService) Deduct(ctx context.Context, tx *gorm.DB, tenantID, referenceID uuid.UUID, lines []InventoryLine) []DeductionResult {
	results := make([]DeductionResult, 0, len(lines))
	for _, line := range lines {
		product, err := s.products.FindByID(ctx, tenantID, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				results = append(results, DeductionResult{ItemID: line.ItemID, Reason: "product not found"})
			} else {
				results = append(results, DeductionResult{ItemID: line.ItemID, Reason: "stock lookup failed"})
			}
			continue
		}

		if err := s.products.DeductStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			reason := "stock update failed"
			if errors.Is(err, repository.ErrInsufficientStock) {
				reason = "insufficient stock"
			}
			log.Warn().
				Str("product_id", line.ProductID.String()).
				Str("quantity", line.Quantity.String()).
				Str("reason", reason).
				Msg("inventory deduction failed")
			results = append(results, DeductionResult{ItemID: line.ItemID, Reason: reason})
			continue
		}

		ref := referenceID
		mv := &model.StockMovement{
			TenantID:    tenantID,
			ProductID:   line.ProductID,
			WarehouseID: line.WarehouseID,
			Type:        model.StockSale,
			Quantity:    line.Quantity.Neg(),
			StockBefore: product.StockQty,
			StockAfter:  product.StockQty.Sub(line.Quantity),
			Reason:      "sale finalized",
			ReferenceID: &ref,
		}
		if err := s.products.CreateMovement(ctx, tx, mv); err != nil {
			results = append(results, DeductionResult{ItemID: line.ItemID, Reason: "movement record failed"})
			continue
		}

		results = append(results, DeductionResult{ItemID: line.ItemID, OK: true})
	}
	return results
}

func (s *stockService) Restore(ctx context.Context, tx *gorm.DB, tenantID, referenceID uuid.UUID, reason string, lines []InventoryLine) error {
	for _, line := range lines {
		product, err := s.products.FindByID(ctx, tenantID, line.ProductID)
		if err != nil {
			return err
		}
		if err := s.products.RestoreStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
		ref := referenceID
		mv := &model.StockMovement{
			TenantID:    tenantID,
			ProductID:   line.ProductID,
			WarehouseID: line.WarehouseID,
			Type:        model.StockVoidRestore,
			Quantity:    line.Quantity,
			StockBefore: product.StockQty,
			StockAfter:  product.StockQty.Add(line.Quantity),
			Reason:      reason,
			ReferenceID: &ref,
		}
		if err := s.products.CreateMovement(ctx, tx, mv); err != nil {
			return err
		}
	}
	return nil
}
