package service

import (
	"context"
	"errors"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"
	"github.com/zolijavos/KGC-3-sub017/internal/sequence"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SessionService owns the cash-register session lifecycle:
// OPEN ⇄ SUSPENDED, then CLOSED exactly once (through PENDING_APPROVAL when
// the counted drawer misses the expected balance by more than the tolerance).
type SessionService interface {
	Open(ctx context.Context, tenantID, operatorID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	Suspend(ctx context.Context, tenantID, operatorID, sessionID uuid.UUID) (*dto.SessionResponse, error)
	Resume(ctx context.Context, tenantID, operatorID, sessionID uuid.UUID) (*dto.SessionResponse, error)
	Close(ctx context.Context, tenantID, operatorID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error)

	ApproveVariance(ctx context.Context, tenantID, managerID, sessionID uuid.UUID, note string) (*dto.SessionResponse, error)
	RejectVariance(ctx context.Context, tenantID, managerID, sessionID uuid.UUID, note string) (*dto.SessionResponse, error)
	// ResubmitVariance lets the cashier attach a corrected explanation while
	// the close sits in PENDING_APPROVAL; balances are never recounted.
	ResubmitVariance(ctx context.Context, tenantID, operatorID, sessionID uuid.UUID, note string) (*dto.SessionResponse, error)

	Get(ctx context.Context, tenantID, sessionID uuid.UUID) (*dto.SessionResponse, error)
	GetActive(ctx context.Context, tenantID, locationID uuid.UUID) (*dto.SessionResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*dto.SessionListResponse, error)

	// RequireOpen loads the session and fails with InvalidState unless it is
	// OPEN. The cart engine gates every new transaction through this.
	RequireOpen(ctx context.Context, tenantID, sessionID uuid.UUID) (*model.CashRegisterSession, error)
}

type sessionService struct {
	sessions     repository.SessionRepository
	transactions repository.TransactionRepository
	zreports     repository.ZReportRepository
	sequences    repository.SequenceRepository
	audit        repository.AuditRepository
	queue        ReportQueue
	toleranceHUF int64
}

func NewSessionService(
	sessions repository.SessionRepository,
	transactions repository.TransactionRepository,
	zreports repository.ZReportRepository,
	sequences repository.SequenceRepository,
	audit repository.AuditRepository,
	queue ReportQueue,
	toleranceHUF int64,
) SessionService {
	return &sessionService{
		sessions:     sessions,
		transactions: transactions,
		zreports:     zreports,
		sequences:    sequences,
		audit:        audit,
		queue:        queue,
		toleranceHUF: toleranceHUF,
	}
}

func (s *sessionService) Open(ctx context.Context, tenantID, operatorID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return nil, apperror.Validation("invalid location id")
	}
	if req.OpeningBalance.IsNegative() {
		return nil, apperror.Validation("opening balance must not be negative")
	}

	if active, err := s.sessions.FindActiveByLocation(ctx, tenantID, locationID); err == nil {
		return nil, apperror.Conflict("session %s is already active at this location", active.SessionNumber)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &model.CashRegisterSession{
		TenantID:       tenantID,
		LocationID:     locationID,
		Status:         model.SessionOpen,
		OpeningBalance: req.OpeningBalance,
		OpenedBy:       operatorID,
		OpenedAt:       now,
	}
	err = runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		value, err := s.sequences.Next(ctx, tx, tenantID, now.Year(), sequence.KindSession)
		if err != nil {
			return err
		}
		sess.SessionNumber = sequence.Format(sequence.KindSession, now.Year(), value)
		if err := s.sessions.Create(ctx, tx, sess); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "session",
			EntityID:   sess.ID,
			Action:     "opened",
			ActorID:    operatorID,
			Detail:     "opening balance " + req.OpeningBalance.StringFixed(0),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_number", sess.SessionNumber).
		Str("tenant_id", tenantID.String()).
		Msg("cash session opened")
	return toSessionResponse(sess), nil
}

func (s *sessionService) Suspend(ctx context.Context, tenantID, operatorID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	return s.shift(ctx, tenantID, operatorID, sessionID, model.SessionOpen, model.SessionSuspended, "suspended")
}

func (s *sessionService) Resume(ctx context.Context, tenantID, operatorID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	return s.shift(ctx, tenantID, operatorID, sessionID, model.SessionSuspended, model.SessionOpen, "resumed")
}

// shift performs the OPEN ⇄ SUSPENDED transitions, which share their shape.
func (s *sessionService) shift(ctx context.Context, tenantID, operatorID, sessionID uuid.UUID, from, to, action string) (*dto.SessionResponse, error) {
	sess, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, mapRepoErr(err, "session")
	}
	if sess.Status != from {
		return nil, apperror.InvalidState("session %s is %s, cannot be %s", sess.SessionNumber, sess.Status, action)
	}
	sess.Status = to
	err = runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if err := s.sessions.Update(ctx, tx, sess); err != nil {
			return mapRepoErr(err, "session")
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "session",
			EntityID:   sess.ID,
			Action:     action,
			ActorID:    operatorID,
		})
	})
	if err != nil {
		return nil, err
	}
	return toSessionResponse(sess), nil
}

func (s *sessionService) Close(ctx context.Context, tenantID, operatorID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, apperror.Validation("invalid session id")
	}
	if req.ClosingBalance.IsNegative() {
		return nil, apperror.Validation("closing balance must not be negative")
	}

	sess, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, mapRepoErr(err, "session")
	}
	switch sess.Status {
	case model.SessionOpen:
	case model.SessionSuspended:
		return nil, apperror.InvalidState("session %s is suspended, resume it before closing", sess.SessionNumber)
	default:
		return nil, apperror.InvalidState("session %s is already %s", sess.SessionNumber, sess.Status)
	}

	txs, err := s.transactions.ListBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	expected := expectedCash(sess.OpeningBalance, txs)
	variance := req.ClosingBalance.Sub(expected)
	pending := variance.Abs().GreaterThan(decimal.NewFromInt(s.toleranceHUF))

	now := time.Now().UTC()
	closing := req.ClosingBalance
	sess.ClosingBalance = &closing
	sess.ExpectedBalance = &expected
	sess.Variance = &variance
	sess.VarianceNote = req.VarianceNote
	sess.ClosedBy = &operatorID
	sess.ClosedAt = &now
	if pending {
		sess.Status = model.SessionPendingApproval
	} else {
		sess.Status = model.SessionClosed
	}

	report := BuildZReport(sess, txs, operatorID, now, pending)
	err = runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if err := s.sessions.Update(ctx, tx, sess); err != nil {
			return mapRepoErr(err, "session")
		}
		if err := s.zreports.Create(ctx, tx, report); err != nil {
			return err
		}
		detail := "variance " + variance.StringFixed(0)
		action := "closed"
		if pending {
			action = "close_pending_approval"
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "session",
			EntityID:   sess.ID,
			Action:     action,
			ActorID:    operatorID,
			Detail:     detail,
		})
	})
	if err != nil {
		return nil, err
	}

	s.enqueueRender(ctx, report)

	log.Info().
		Str("session_number", sess.SessionNumber).
		Str("variance", variance.StringFixed(0)).
		Bool("pending_approval", pending).
		Msg("cash session closed")

	return &dto.CloseSessionResponse{
		Session:         *toSessionResponse(sess),
		ZReport:         *toZReportResponse(report),
		PendingApproval: pending,
	}, nil
}

func (s *sessionService) ApproveVariance(ctx context.Context, tenantID, managerID, sessionID uuid.UUID, note string) (*dto.SessionResponse, error) {
	sess, err := s.requirePendingApproval(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess.Status = model.SessionClosed
	sess.ApprovedBy = &managerID
	sess.ApproverNote = &note

	err = runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if err := s.sessions.Update(ctx, tx, sess); err != nil {
			return mapRepoErr(err, "session")
		}
		report, err := s.zreports.FindBySessionID(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		report.Provisional = false
		report.ApprovedBy = &managerID
		report.ApproverNote = &note
		report.ApprovedAt = &now
		if err := s.zreports.UpdateApproval(ctx, tx, report); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "session",
			EntityID:   sess.ID,
			Action:     "variance_approved",
			ActorID:    managerID,
			Detail:     note,
		})
	})
	if err != nil {
		return nil, err
	}
	return toSessionResponse(sess), nil
}

func (s *sessionService) RejectVariance(ctx context.Context, tenantID, managerID, sessionID uuid.UUID, note string) (*dto.SessionResponse, error) {
	sess, err := s.requirePendingApproval(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	// Rejection keeps the session in PENDING_APPROVAL: the counted drawer is
	// a historical fact and is never re-entered, the cashier can only attach
	// a better explanation and resubmit.
	sess.ApproverNote = &note
	err = runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if err := s.sessions.Update(ctx, tx, sess); err != nil {
			return mapRepoErr(err, "session")
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "session",
			EntityID:   sess.ID,
			Action:     "variance_rejected",
			ActorID:    managerID,
			Detail:     note,
		})
	})
	if err != nil {
		return nil, err
	}
	return toSessionResponse(sess), nil
}

func (s *sessionService) ResubmitVariance(ctx context.Context, tenantID, operatorID, sessionID uuid.UUID, note string) (*dto.SessionResponse, error) {
	sess, err := s.requirePendingApproval(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	sess.VarianceNote = &note
	err = runTx(ctx, s.sessions.DB(), func(tx *gorm.DB) error {
		if err := s.sessions.Update(ctx, tx, sess); err != nil {
			return mapRepoErr(err, "session")
		}
		return s.audit.Record(ctx, tx, &model.AuditEvent{
			TenantID:   tenantID,
			EntityType: "session",
			EntityID:   sess.ID,
			Action:     "variance_resubmitted",
			ActorID:    operatorID,
			Detail:     note,
		})
	})
	if err != nil {
		return nil, err
	}
	return toSessionResponse(sess), nil
}

func (s *sessionService) Get(ctx context.Context, tenantID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, mapRepoErr(err, "session")
	}
	return toSessionResponse(sess), nil
}

func (s *sessionService) GetActive(ctx context.Context, tenantID, locationID uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.sessions.FindActiveByLocation(ctx, tenantID, locationID)
	if err != nil {
		return nil, mapRepoErr(err, "active session")
	}
	return toSessionResponse(sess), nil
}

func (s *sessionService) List(ctx context.Context, tenantID uuid.UUID, page, limit int) (*dto.SessionListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sessions, total, err := s.sessions.List(ctx, tenantID, page, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, *toSessionResponse(&sessions[i]))
	}
	return &dto.SessionListResponse{Data: out, Total: total, Page: page, Limit: limit}, nil
}

func (s *sessionService) RequireOpen(ctx context.Context, tenantID, sessionID uuid.UUID) (*model.CashRegisterSession, error) {
	sess, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, mapRepoErr(err, "session")
	}
	if sess.Status != model.SessionOpen {
		return nil, apperror.InvalidState("session %s is %s, sales require an open session", sess.SessionNumber, sess.Status)
	}
	return sess, nil
}

func (s *sessionService) requirePendingApproval(ctx context.Context, tenantID, sessionID uuid.UUID) (*model.CashRegisterSession, error) {
	sess, err := s.sessions.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, mapRepoErr(err, "session")
	}
	if sess.Status != model.SessionPendingApproval {
		return nil, apperror.InvalidState("session %s is %s, no variance decision is pending", sess.SessionNumber, sess.Status)
	}
	return sess, nil
}

func (s *sessionService) enqueueRender(ctx context.Context, report *model.ZReport) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueZReportRender(ctx, report.ID); err != nil {
		// The retry cron picks up pending reports, so a failed enqueue only
		// delays the PDF.
		log.Error().Err(err).Str("zreport_id", report.ID.String()).Msg("failed to enqueue z-report render")
	}
}

// expectedCash is opening balance plus cash taken in minus cash refunded.
// Refund rows are counted for every transaction, voided ones included: a
// voided cash sale has both its payment and its refund on the ledger, so the
// pair nets to zero drawer impact.
func expectedCash(opening decimal.Decimal, txs []model.SaleTransaction) decimal.Decimal {
	expected := opening
	for i := range txs {
		for _, p := range txs[i].Payments {
			if p.Method == model.MethodCash {
				expected = expected.Add(p.Amount)
			}
		}
		for _, r := range txs[i].Refunds {
			if r.Method == model.MethodCash {
				expected = expected.Sub(r.Amount)
			}
		}
	}
	return expected
}
