package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zolijavos/KGC-3-sub017/internal/sequence"
)

// SequenceRepository issues strictly increasing numbers per (tenant, year, kind)
// from a durable counter. Values are never reused: a number stays consumed even
// if the issuing operation later rolls back outside the passed tx, so gaps are
// possible but duplicates are not.
type SequenceRepository interface {
	// Next atomically increments and returns the counter. When tx is non-nil
	// the increment joins that transaction.
	Next(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, year int, kind sequence.Kind) (int64, error)
}

type sequenceRepo struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) SequenceRepository { return &sequenceRepo{db: db} }

func (r *sequenceRepo) Next(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, year int, kind sequence.Kind) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	// Single-statement upsert keeps the increment atomic under concurrent callers.
	var value int64
	err := db.WithContext(ctx).Raw(`
		INSERT INTO sequence_counters (tenant_id, year, kind, value)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (tenant_id, year, kind)
		DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value`,
		tenantID, year, string(kind),
	).Scan(&value).Error
	return value, err
}
