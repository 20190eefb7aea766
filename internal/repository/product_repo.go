package repository

import (
	"context"
	"errors"

	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientStock is returned by DeductStock when the product does not
// carry enough stock for the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*model.Product, error)
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.Product, int64, error)
	// DeductStock atomically decrements stock, failing with
	// ErrInsufficientStock instead of going negative.
	DeductStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error
	// RestoreStock adds qty back (void of a completed sale).
	RestoreStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error
	CreateMovement(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productRepo) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sku = ?", tenantID, sku).
		First(&p).Error
	return &p, err
}

func (r *productRepo) List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("tenant_id = ?", tenantID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name ASC").Offset((page - 1) * limit).Limit(limit).Find(&products).Error
	return products, total, err
}

func (r *productRepo) DeductStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error {
	// Guarded single-statement decrement: the WHERE clause keeps stock from
	// going negative under concurrent sales.
	res := r.use(tx).WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock_qty >= ?", productID, qty).
		Update("stock_qty", gorm.Expr("stock_qty - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *productRepo) RestoreStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error {
	return r.use(tx).WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock_qty", gorm.Expr("stock_qty + ?", qty)).Error
}

func (r *productRepo) CreateMovement(ctx context.Context, tx *gorm.DB, m *model.StockMovement) error {
	return r.use(tx).WithContext(ctx).Create(m).Error
}

func (r *productRepo) use(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
