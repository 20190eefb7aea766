package repository

import (
	"context"

	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditRepository is the append-only audit capability. Events are never
// updated or deleted.
type AuditRepository interface {
	Record(ctx context.Context, tx *gorm.DB, ev *model.AuditEvent) error
	ListByEntity(ctx context.Context, tenantID, entityID uuid.UUID) ([]model.AuditEvent, error)
}

type auditRepo struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &auditRepo{db: db} }

func (r *auditRepo) Record(ctx context.Context, tx *gorm.DB, ev *model.AuditEvent) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Create(ev).Error
}

func (r *auditRepo) ListByEntity(ctx context.Context, tenantID, entityID uuid.UUID) ([]model.AuditEvent, error) {
	var events []model.AuditEvent
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_id = ?", tenantID, entityID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
