package repository

import (
	"context"

	"github.com/zolijavos/KGC-3-sub017/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ZReportRepository interface {
	Create(ctx context.Context, tx *gorm.DB, z *model.ZReport) error
	FindBySessionID(ctx context.Context, tenantID, sessionID uuid.UUID) (*model.ZReport, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.ZReport, error)
	// UpdateApproval appends approval metadata and clears the provisional flag.
	UpdateApproval(ctx context.Context, tx *gorm.DB, z *model.ZReport) error
	// UpdateRender writes the PDF render bookkeeping fields only.
	UpdateRender(ctx context.Context, z *model.ZReport) error
	// ListPendingRender returns reports whose PDF has not been produced yet,
	// oldest first, capped at limit.
	ListPendingRender(ctx context.Context, limit int) ([]model.ZReport, error)
}

type zreportRepo struct{ db *gorm.DB }

func NewZReportRepository(db *gorm.DB) ZReportRepository { return &zreportRepo{db: db} }

func (r *zreportRepo) Create(ctx context.Context, tx *gorm.DB, z *model.ZReport) error {
	return r.use(tx).WithContext(ctx).Create(z).Error
}

func (r *zreportRepo) FindBySessionID(ctx context.Context, tenantID, sessionID uuid.UUID) (*model.ZReport, error) {
	var z model.ZReport
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND session_id = ?", tenantID, sessionID).
		First(&z).Error
	return &z, err
}

func (r *zreportRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ZReport, error) {
	var z model.ZReport
	err := r.db.WithContext(ctx).First(&z, "id = ?", id).Error
	return &z, err
}

func (r *zreportRepo) UpdateApproval(ctx context.Context, tx *gorm.DB, z *model.ZReport) error {
	return r.use(tx).WithContext(ctx).
		Model(&model.ZReport{}).
		Where("id = ?", z.ID).
		Updates(map[string]interface{}{
			"approved_by":   z.ApprovedBy,
			"approver_note": z.ApproverNote,
			"approved_at":   z.ApprovedAt,
			"provisional":   z.Provisional,
		}).Error
}

func (r *zreportRepo) UpdateRender(ctx context.Context, z *model.ZReport) error {
	return r.db.WithContext(ctx).
		Model(&model.ZReport{}).
		Where("id = ?", z.ID).
		Updates(map[string]interface{}{
			"render_status": z.RenderStatus,
			"render_error":  z.RenderError,
			"retry_count":   z.RetryCount,
			"pdf_path":      z.PDFPath,
		}).Error
}

func (r *zreportRepo) ListPendingRender(ctx context.Context, limit int) ([]model.ZReport, error) {
	var reports []model.ZReport
	err := r.db.WithContext(ctx).
		Where("render_status IN ?", []string{model.RenderPending, model.RenderFailed}).
		Order("created_at ASC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

func (r *zreportRepo) use(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
