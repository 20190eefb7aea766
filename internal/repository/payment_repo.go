package repository

import (
	"context"

	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository persists the immutable payment ledger. Payments and
// refunds are create-only; there is deliberately no update or delete.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, tx *gorm.DB, p *model.SalePayment) error
	CreateRefund(ctx context.Context, tx *gorm.DB, rf *model.PaymentRefund) error
	FindPaymentByID(ctx context.Context, id uuid.UUID) (*model.SalePayment, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.SalePayment, error)
	ListRefundsByTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.PaymentRefund, error)
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func (r *paymentRepo) CreatePayment(ctx context.Context, tx *gorm.DB, p *model.SalePayment) error {
	return r.use(tx).WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) CreateRefund(ctx context.Context, tx *gorm.DB, rf *model.PaymentRefund) error {
	return r.use(tx).WithContext(ctx).Create(rf).Error
}

func (r *paymentRepo) FindPaymentByID(ctx context.Context, id uuid.UUID) (*model.SalePayment, error) {
	var p model.SalePayment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *paymentRepo) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.SalePayment, error) {
	var payments []model.SalePayment
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepo) ListRefundsByTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.PaymentRefund, error) {
	var refunds []model.PaymentRefund
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&refunds).Error
	return refunds, err
}

func (r *paymentRepo) use(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
