package service

import (
	"context"
	"sort"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BuildZReport derives the immutable reconciliation snapshot for a closing
// session from its final transaction set. Voided transactions count toward
// VoidCount but are excluded from the method and tax breakdowns: their
// payments were refunded, so they contribute nothing to the day's takings.
func BuildZReport(s *model.CashRegisterSession, txs []model.SaleTransaction, closedBy uuid.UUID, closedAt time.Time, provisional bool) *model.ZReport {
	methodAgg := map[string]*model.MethodTotal{}
	taxAgg := map[int64]*model.TaxTotal{}
	voids := 0

	for i := range txs {
		t := &txs[i]
		if t.Status == model.TxVoided {
			voids++
			continue
		}
		for _, p := range t.Payments {
			m, ok := methodAgg[p.Method]
			if !ok {
				m = &model.MethodTotal{Method: p.Method, Total: decimal.Zero}
				methodAgg[p.Method] = m
			}
			m.Count++
			m.Total = m.Total.Add(p.Amount)
		}
		for _, it := range t.Items {
			tt, ok := taxAgg[it.TaxRate]
			if !ok {
				tt = &model.TaxTotal{Rate: it.TaxRate, Net: decimal.Zero, Tax: decimal.Zero}
				taxAgg[it.TaxRate] = tt
			}
			tt.Net = tt.Net.Add(it.LineSubtotal)
			tt.Tax = tt.Tax.Add(it.LineTax)
		}
	}

	methods := make(model.MethodTotals, 0, len(methodAgg))
	for _, m := range []string{model.MethodCash, model.MethodCard, model.MethodTransfer, model.MethodVoucher} {
		if agg, ok := methodAgg[m]; ok {
			methods = append(methods, *agg)
		}
	}
	taxes := make(model.TaxTotals, 0, len(taxAgg))
	for _, tt := range taxAgg {
		taxes = append(taxes, *tt)
	}
	sort.Slice(taxes, func(i, j int) bool { return taxes[i].Rate < taxes[j].Rate })

	z := &model.ZReport{
		TenantID:         s.TenantID,
		SessionID:        s.ID,
		SessionNumber:    s.SessionNumber,
		LocationID:       s.LocationID,
		OpenedAt:         s.OpenedAt,
		ClosedAt:         closedAt,
		OpeningBalance:   s.OpeningBalance,
		Provisional:      provisional,
		TransactionCount: len(txs),
		VoidCount:        voids,
		MethodBreakdown:  methods,
		TaxBreakdown:     taxes,
		OpenedBy:         s.OpenedBy,
		ClosedBy:         closedBy,
		RenderStatus:     model.RenderPending,
	}
	if s.ExpectedBalance != nil {
		z.ExpectedBalance = *s.ExpectedBalance
	}
	if s.ClosingBalance != nil {
		z.ClosingBalance = *s.ClosingBalance
	}
	if s.Variance != nil {
		z.Variance = *s.Variance
	}
	return z
}

type ZReportService interface {
	GetBySession(ctx context.Context, tenantID, sessionID uuid.UUID) (*dto.ZReportResponse, error)
	// PDFPath returns the rendered PDF location, or an InvalidState error
	// while rendering is still pending or has failed.
	PDFPath(ctx context.Context, tenantID, sessionID uuid.UUID) (string, error)
}

type zreportService struct {
	zreports repository.ZReportRepository
}

func NewZReportService(zreports repository.ZReportRepository) ZReportService {
	return &zreportService{zreports: zreports}
}

func (s *zreportService) GetBySession(ctx context.Context, tenantID, sessionID uuid.UUID) (*dto.ZReportResponse, error) {
	z, err := s.zreports.FindBySessionID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, mapRepoErr(err, "z-report")
	}
	return toZReportResponse(z), nil
}

func (s *zreportService) PDFPath(ctx context.Context, tenantID, sessionID uuid.UUID) (string, error) {
	z, err := s.zreports.FindBySessionID(ctx, tenantID, sessionID)
	if err != nil {
		return "", mapRepoErr(err, "z-report")
	}
	if z.RenderStatus != model.RenderDone || z.PDFPath == nil {
		return "", apperror.InvalidState("z-report PDF is not available (render %s)", z.RenderStatus)
	}
	return *z.PDFPath, nil
}

func toZReportResponse(z *model.ZReport) *dto.ZReportResponse {
	return &dto.ZReportResponse{
		ID:              z.ID.String(),
		SessionID:       z.SessionID.String(),
		SessionNumber:   z.SessionNumber,
		OpenedAt:        fmtTime(z.OpenedAt),
		ClosedAt:        fmtTime(z.ClosedAt),
		OpeningBalance:  z.OpeningBalance,
		ExpectedBalance: z.ExpectedBalance,
		ClosingBalance:  z.ClosingBalance,
		Variance:        z.Variance,
		Provisional:     z.Provisional,
		Transactions:    z.TransactionCount,
		Voids:           z.VoidCount,
		MethodBreakdown: z.MethodBreakdown,
		TaxBreakdown:    z.TaxBreakdown,
		ApproverNote:    z.ApproverNote,
		PDFUrl:          z.PDFPath,
	}
}
