package repository

import (
	"context"

	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, t *model.SaleTransaction) error
	// FindByID loads the transaction with its items, payments and refunds.
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.SaleTransaction, error)
	// Update writes the transaction record guarded by the version column
	// (ErrStaleVersion on a lost race). Associations are not touched.
	Update(ctx context.Context, tx *gorm.DB, t *model.SaleTransaction) error
	ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]model.SaleTransaction, error)

	CreateItem(ctx context.Context, tx *gorm.DB, item *model.SaleItem) error
	UpdateItem(ctx context.Context, tx *gorm.DB, item *model.SaleItem) error
	DeleteItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error
	// MarkItemDeducted flips the inventory-deducted flag of one item.
	MarkItemDeducted(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error

	DB() *gorm.DB
}

type transactionRepo struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) TransactionRepository { return &transactionRepo{db: db} }

func (r *transactionRepo) DB() *gorm.DB { return r.db }

func (r *transactionRepo) Create(ctx context.Context, tx *gorm.DB, t *model.SaleTransaction) error {
	return r.use(tx).WithContext(ctx).Create(t).Error
}

func (r *transactionRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.SaleTransaction, error) {
	var t model.SaleTransaction
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Payments").
		Preload("Refunds").
		Where("tenant_id = ?", tenantID).
		First(&t, "id = ?", id).Error
	return &t, err
}

func (r *transactionRepo) Update(ctx context.Context, tx *gorm.DB, t *model.SaleTransaction) error {
	prev := t.Version
	t.Version = prev + 1
	res := r.use(tx).WithContext(ctx).
		Model(&model.SaleTransaction{}).
		Where("id = ? AND version = ?", t.ID, prev).
		Select("*").Omit("id", "created_at").
		Updates(t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (r *transactionRepo) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]model.SaleTransaction, error) {
	var txs []model.SaleTransaction
	err := r.db.WithContext(ctx).
		Preload("Items").Preload("Payments").Preload("Refunds").
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}

func (r *transactionRepo) CreateItem(ctx context.Context, tx *gorm.DB, item *model.SaleItem) error {
	return r.use(tx).WithContext(ctx).Create(item).Error
}

func (r *transactionRepo) UpdateItem(ctx context.Context, tx *gorm.DB, item *model.SaleItem) error {
	return r.use(tx).WithContext(ctx).
		Model(&model.SaleItem{}).
		Where("id = ?", item.ID).
		Select("*").Omit("id", "created_at").
		Updates(item).Error
}

func (r *transactionRepo) DeleteItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
	return r.use(tx).WithContext(ctx).Delete(&model.SaleItem{}, "id = ?", itemID).Error
}

func (r *transactionRepo) MarkItemDeducted(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error {
	return r.use(tx).WithContext(ctx).
		Model(&model.SaleItem{}).
		Where("id = ?", itemID).
		Update("inventory_deducted", true).Error
}

func (r *transactionRepo) use(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
