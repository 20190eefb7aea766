package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/infra"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"
	"github.com/zolijavos/KGC-3-sub017/internal/sequence"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeStore is the shared in-memory backing for all repository fakes, so a
// payment created through the payment repo shows up in transaction preloads.
type fakeStore struct {
	sessions  map[uuid.UUID]model.CashRegisterSession
	txs       map[uuid.UUID]model.SaleTransaction
	items     map[uuid.UUID]model.SaleItem
	payments  []model.SalePayment
	refunds   []model.PaymentRefund
	products  map[uuid.UUID]model.Product
	movements []model.StockMovement
	zreports  map[uuid.UUID]model.ZReport
	counters  map[string]int64
	events    []model.AuditEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]model.CashRegisterSession),
		txs:      make(map[uuid.UUID]model.SaleTransaction),
		items:    make(map[uuid.UUID]model.SaleItem),
		products: make(map[uuid.UUID]model.Product),
		zreports: make(map[uuid.UUID]model.ZReport),
		counters: make(map[string]int64),
	}
}

// ── Session repository ───────────────────────────────────────────────────────

type fakeSessionRepo struct{ st *fakeStore }

var _ repository.SessionRepository = (*fakeSessionRepo)(nil)

func (r *fakeSessionRepo) DB() *gorm.DB { return nil }

func (r *fakeSessionRepo) Create(_ context.Context, _ *gorm.DB, s *model.CashRegisterSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.st.sessions[s.ID] = *s
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.CashRegisterSession, error) {
	s, ok := r.st.sessions[id]
	if !ok || s.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	out := s
	return &out, nil
}

func (r *fakeSessionRepo) FindActiveByLocation(_ context.Context, tenantID, locationID uuid.UUID) (*model.CashRegisterSession, error) {
	for _, s := range r.st.sessions {
		if s.TenantID == tenantID && s.LocationID == locationID && s.Active() {
			out := s
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSessionRepo) Update(_ context.Context, _ *gorm.DB, s *model.CashRegisterSession) error {
	cur, ok := r.st.sessions[s.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if cur.Version != s.Version {
		return repository.ErrStaleVersion
	}
	s.Version++
	r.st.sessions[s.ID] = *s
	return nil
}

func (r *fakeSessionRepo) List(_ context.Context, tenantID uuid.UUID, _, _ int) ([]model.CashRegisterSession, int64, error) {
	var out []model.CashRegisterSession
	for _, s := range r.st.sessions {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, int64(len(out)), nil
}

// ── Transaction repository ───────────────────────────────────────────────────

type fakeTransactionRepo struct{ st *fakeStore }

var _ repository.TransactionRepository = (*fakeTransactionRepo)(nil)

func (r *fakeTransactionRepo) DB() *gorm.DB { return nil }

func (r *fakeTransactionRepo) Create(_ context.Context, _ *gorm.DB, t *model.SaleTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	stored := *t
	stored.Items, stored.Payments, stored.Refunds = nil, nil, nil
	r.st.txs[t.ID] = stored
	return nil
}

func (r *fakeTransactionRepo) assemble(t model.SaleTransaction) *model.SaleTransaction {
	t.Items = nil
	for _, it := range r.st.items {
		if it.TransactionID == t.ID {
			t.Items = append(t.Items, it)
		}
	}
	sort.Slice(t.Items, func(i, j int) bool { return t.Items[i].Position < t.Items[j].Position })
	t.Payments = nil
	for _, p := range r.st.payments {
		if p.TransactionID == t.ID {
			t.Payments = append(t.Payments, p)
		}
	}
	t.Refunds = nil
	for _, rf := range r.st.refunds {
		if rf.TransactionID == t.ID {
			t.Refunds = append(t.Refunds, rf)
		}
	}
	return &t
}

func (r *fakeTransactionRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.SaleTransaction, error) {
	t, ok := r.st.txs[id]
	if !ok || t.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.assemble(t), nil
}

func (r *fakeTransactionRepo) Update(_ context.Context, _ *gorm.DB, t *model.SaleTransaction) error {
	cur, ok := r.st.txs[t.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if cur.Version != t.Version {
		return repository.ErrStaleVersion
	}
	t.Version++
	stored := *t
	stored.Items, stored.Payments, stored.Refunds = nil, nil, nil
	r.st.txs[t.ID] = stored
	return nil
}

func (r *fakeTransactionRepo) ListBySession(_ context.Context, tenantID, sessionID uuid.UUID) ([]model.SaleTransaction, error) {
	var out []model.SaleTransaction
	for _, t := range r.st.txs {
		if t.TenantID == tenantID && t.SessionID == sessionID {
			out = append(out, *r.assemble(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeTransactionRepo) CreateItem(_ context.Context, _ *gorm.DB, item *model.SaleItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.st.items[item.ID] = *item
	return nil
}

func (r *fakeTransactionRepo) UpdateItem(_ context.Context, _ *gorm.DB, item *model.SaleItem) error {
	if _, ok := r.st.items[item.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.st.items[item.ID] = *item
	return nil
}

func (r *fakeTransactionRepo) DeleteItem(_ context.Context, _ *gorm.DB, itemID uuid.UUID) error {
	delete(r.st.items, itemID)
	return nil
}

func (r *fakeTransactionRepo) MarkItemDeducted(_ context.Context, _ *gorm.DB, itemID uuid.UUID) error {
	it, ok := r.st.items[itemID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	it.InventoryDeducted = true
	r.st.items[itemID] = it
	return nil
}

// ── Payment repository ───────────────────────────────────────────────────────

type fakePaymentRepo struct{ st *fakeStore }

var _ repository.PaymentRepository = (*fakePaymentRepo)(nil)

func (r *fakePaymentRepo) CreatePayment(_ context.Context, _ *gorm.DB, p *model.SalePayment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.st.payments = append(r.st.payments, *p)
	return nil
}

func (r *fakePaymentRepo) CreateRefund(_ context.Context, _ *gorm.DB, rf *model.PaymentRefund) error {
	if rf.ID == uuid.Nil {
		rf.ID = uuid.New()
	}
	r.st.refunds = append(r.st.refunds, *rf)
	return nil
}

func (r *fakePaymentRepo) FindPaymentByID(_ context.Context, id uuid.UUID) (*model.SalePayment, error) {
	for _, p := range r.st.payments {
		if p.ID == id {
			out := p
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) ListByTransaction(_ context.Context, transactionID uuid.UUID) ([]model.SalePayment, error) {
	var out []model.SalePayment
	for _, p := range r.st.payments {
		if p.TransactionID == transactionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ListRefundsByTransaction(_ context.Context, transactionID uuid.UUID) ([]model.PaymentRefund, error) {
	var out []model.PaymentRefund
	for _, rf := range r.st.refunds {
		if rf.TransactionID == transactionID {
			out = append(out, rf)
		}
	}
	return out, nil
}

// ── Product repository ───────────────────────────────────────────────────────

type fakeProductRepo struct{ st *fakeStore }

var _ repository.ProductRepository = (*fakeProductRepo)(nil)

func (r *fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.st.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Product, error) {
	p, ok := r.st.products[id]
	if !ok || p.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	out := p
	return &out, nil
}

func (r *fakeProductRepo) FindBySKU(_ context.Context, tenantID uuid.UUID, sku string) (*model.Product, error) {
	for _, p := range r.st.products {
		if p.TenantID == tenantID && p.SKU == sku {
			out := p
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) List(_ context.Context, tenantID uuid.UUID, _, _ int) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range r.st.products {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) DeductStock(_ context.Context, _ *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error {
	p, ok := r.st.products[productID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.StockQty.LessThan(qty) {
		return repository.ErrInsufficientStock
	}
	p.StockQty = p.StockQty.Sub(qty)
	r.st.products[productID] = p
	return nil
}

func (r *fakeProductRepo) RestoreStock(_ context.Context, _ *gorm.DB, productID uuid.UUID, qty decimal.Decimal) error {
	p, ok := r.st.products[productID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.StockQty = p.StockQty.Add(qty)
	r.st.products[productID] = p
	return nil
}

func (r *fakeProductRepo) CreateMovement(_ context.Context, _ *gorm.DB, m *model.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.st.movements = append(r.st.movements, *m)
	return nil
}

// ── Z-report repository ──────────────────────────────────────────────────────

type fakeZReportRepo struct{ st *fakeStore }

var _ repository.ZReportRepository = (*fakeZReportRepo)(nil)

func (r *fakeZReportRepo) Create(_ context.Context, _ *gorm.DB, z *model.ZReport) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	for _, existing := range r.st.zreports {
		if existing.SessionID == z.SessionID {
			return errors.New("duplicate z-report for session")
		}
	}
	r.st.zreports[z.ID] = *z
	return nil
}

func (r *fakeZReportRepo) FindBySessionID(_ context.Context, tenantID, sessionID uuid.UUID) (*model.ZReport, error) {
	for _, z := range r.st.zreports {
		if z.TenantID == tenantID && z.SessionID == sessionID {
			out := z
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeZReportRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ZReport, error) {
	z, ok := r.st.zreports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := z
	return &out, nil
}

func (r *fakeZReportRepo) UpdateApproval(_ context.Context, _ *gorm.DB, z *model.ZReport) error {
	cur, ok := r.st.zreports[z.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.ApprovedBy = z.ApprovedBy
	cur.ApproverNote = z.ApproverNote
	cur.ApprovedAt = z.ApprovedAt
	cur.Provisional = z.Provisional
	r.st.zreports[z.ID] = cur
	return nil
}

func (r *fakeZReportRepo) UpdateRender(_ context.Context, z *model.ZReport) error {
	cur, ok := r.st.zreports[z.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.RenderStatus = z.RenderStatus
	cur.RenderError = z.RenderError
	cur.RetryCount = z.RetryCount
	cur.PDFPath = z.PDFPath
	r.st.zreports[z.ID] = cur
	return nil
}

func (r *fakeZReportRepo) ListPendingRender(_ context.Context, limit int) ([]model.ZReport, error) {
	var out []model.ZReport
	for _, z := range r.st.zreports {
		if z.RenderStatus == model.RenderPending || z.RenderStatus == model.RenderFailed {
			out = append(out, z)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Sequence repository ──────────────────────────────────────────────────────

type fakeSequenceRepo struct{ st *fakeStore }

var _ repository.SequenceRepository = (*fakeSequenceRepo)(nil)

func (r *fakeSequenceRepo) Next(_ context.Context, _ *gorm.DB, tenantID uuid.UUID, year int, kind sequence.Kind) (int64, error) {
	key := fmt.Sprintf("%s/%d/%s", tenantID, year, kind)
	r.st.counters[key]++
	return r.st.counters[key], nil
}

// ── Audit repository ─────────────────────────────────────────────────────────

type fakeAuditRepo struct{ st *fakeStore }

var _ repository.AuditRepository = (*fakeAuditRepo)(nil)

func (r *fakeAuditRepo) Record(_ context.Context, _ *gorm.DB, ev *model.AuditEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ev.CreatedAt = time.Now()
	r.st.events = append(r.st.events, *ev)
	return nil
}

func (r *fakeAuditRepo) ListByEntity(_ context.Context, tenantID, entityID uuid.UUID) ([]model.AuditEvent, error) {
	var out []model.AuditEvent
	for _, ev := range r.st.events {
		if ev.TenantID == tenantID && ev.EntityID == entityID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// ── Card gateway fake ────────────────────────────────────────────────────────

type fakeGateway struct {
	declineNext bool
	failNext    bool
	captures    []decimal.Decimal
	reversals   []string
	nextRef     int
}

var _ CardGateway = (*fakeGateway)(nil)

func (g *fakeGateway) Capture(_ context.Context, amount decimal.Decimal, _, _ string) (*infra.CardCaptureResult, error) {
	if g.failNext {
		g.failNext = false
		return nil, errors.New("terminal timeout")
	}
	if g.declineNext {
		g.declineNext = false
		return nil, &infra.CardDeclinedError{Code: "51", Message: "insufficient funds"}
	}
	g.nextRef++
	g.captures = append(g.captures, amount)
	return &infra.CardCaptureResult{
		Reference: fmt.Sprintf("CAP-%04d", g.nextRef),
		LastFour:  "4242",
		Brand:     "VISA",
		Amount:    amount,
	}, nil
}

func (g *fakeGateway) Reverse(_ context.Context, reference string) error {
	g.reversals = append(g.reversals, reference)
	return nil
}

// ── Report queue fake ────────────────────────────────────────────────────────

type fakeQueue struct{ enqueued []uuid.UUID }

var _ ReportQueue = (*fakeQueue)(nil)

func (q *fakeQueue) EnqueueZReportRender(_ context.Context, zreportID uuid.UUID) error {
	q.enqueued = append(q.enqueued, zreportID)
	return nil
}

// ── Test environment ─────────────────────────────────────────────────────────

type testEnv struct {
	st       *fakeStore
	gateway  *fakeGateway
	queue    *fakeQueue
	tenantID uuid.UUID
	operator uuid.UUID
	manager  uuid.UUID
	location uuid.UUID

	sessions SessionService
	cart     CartService
	payments PaymentService
	zreports ZReportService
	products ProductService
}

// newTestEnv wires the full service graph over the in-memory fakes with a
// 200 HUF variance tolerance.
func newTestEnv() *testEnv {
	st := newFakeStore()
	gateway := &fakeGateway{}
	queue := &fakeQueue{}

	sessionRepo := &fakeSessionRepo{st: st}
	txRepo := &fakeTransactionRepo{st: st}
	payRepo := &fakePaymentRepo{st: st}
	productRepo := &fakeProductRepo{st: st}
	zRepo := &fakeZReportRepo{st: st}
	seqRepo := &fakeSequenceRepo{st: st}
	auditRepo := &fakeAuditRepo{st: st}

	inventory := NewStockService(productRepo)
	sessions := NewSessionService(sessionRepo, txRepo, zRepo, seqRepo, auditRepo, queue, 200)
	payments := NewPaymentService(txRepo, payRepo, auditRepo, inventory, sessions, gateway, "HUF")
	cart := NewCartService(txRepo, productRepo, seqRepo, auditRepo, sessions, payments, inventory)

	return &testEnv{
		st:       st,
		gateway:  gateway,
		queue:    queue,
		tenantID: uuid.New(),
		operator: uuid.New(),
		manager:  uuid.New(),
		location: uuid.New(),
		sessions: sessions,
		cart:     cart,
		payments: payments,
		zreports: NewZReportService(zRepo),
		products: NewProductService(productRepo),
	}
}

// seedProduct inserts a catalog product and returns its id.
func (e *testEnv) seedProduct(price int64, taxRate int64, stock int64) uuid.UUID {
	p := model.Product{
		ID:             uuid.New(),
		TenantID:       e.tenantID,
		SKU:            fmt.Sprintf("SKU-%d", len(e.st.products)+1),
		Name:           fmt.Sprintf("Product %d", len(e.st.products)+1),
		UnitPrice:      decimal.NewFromInt(price),
		DefaultTaxRate: taxRate,
		StockQty:       decimal.NewFromInt(stock),
		Active:         true,
	}
	e.st.products[p.ID] = p
	return p.ID
}
