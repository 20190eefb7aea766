package repository

import (
	"context"
	"errors"

	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStaleVersion is returned by optimistic updates when the row was modified
// by a concurrent caller since it was read.
var ErrStaleVersion = errors.New("stale version")

type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, s *model.CashRegisterSession) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.CashRegisterSession, error)
	// FindActiveByLocation returns the OPEN or SUSPENDED session for a
	// location, or gorm.ErrRecordNotFound.
	FindActiveByLocation(ctx context.Context, tenantID, locationID uuid.UUID) (*model.CashRegisterSession, error)
	// Update writes all fields guarded by the version column; it bumps the
	// version and returns ErrStaleVersion on a lost race.
	Update(ctx context.Context, tx *gorm.DB, s *model.CashRegisterSession) error
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.CashRegisterSession, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in the service layer
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) DB() *gorm.DB { return r.db }

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, s *model.CashRegisterSession) error {
	return r.use(tx).WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.CashRegisterSession, error) {
	var s model.CashRegisterSession
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *sessionRepo) FindActiveByLocation(ctx context.Context, tenantID, locationID uuid.UUID) (*model.CashRegisterSession, error) {
	var s model.CashRegisterSession
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND location_id = ? AND status IN ?",
			tenantID, locationID, []string{model.SessionOpen, model.SessionSuspended}).
		First(&s).Error
	return &s, err
}

func (r *sessionRepo) Update(ctx context.Context, tx *gorm.DB, s *model.CashRegisterSession) error {
	prev := s.Version
	s.Version = prev + 1
	res := r.use(tx).WithContext(ctx).
		Model(&model.CashRegisterSession{}).
		Where("id = ? AND version = ?", s.ID, prev).
		Select("*").Omit("id", "created_at").
		Updates(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (r *sessionRepo) List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.CashRegisterSession, int64, error) {
	var sessions []model.CashRegisterSession
	var total int64
	q := r.db.WithContext(ctx).Model(&model.CashRegisterSession{}).Where("tenant_id = ?", tenantID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("opened_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *sessionRepo) use(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
