package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/partners"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/stock"
)

type fakeState struct {
	nextID    int64
	stock     map[int64]decimal.Decimal
	docs      map[int64]*Sale
	failLines bool
}

type fakeRepo struct {
	state *fakeState
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{state: &fakeState{nextID: 1, stock: map[int64]decimal.Decimal{}, docs: map[int64]*Sale{}}}
}

// WithTx snapshots state and restores it when fn fails, mimicking rollback.
func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapStock := make(map[int64]decimal.Decimal, len(f.state.stock))
	for k, v := range f.state.stock {
		snapStock[k] = v
	}
	snapDocs := make(map[int64]*Sale, len(f.state.docs))
	for k, v := range f.state.docs {
		snapDocs[k] = v
	}
	snapNext := f.state.nextID

	if err := fn(ctx, &fakeTx{state: f.state}); err != nil {
		f.state.stock = snapStock
		f.state.docs = snapDocs
		f.state.nextID = snapNext
		return err
	}
	return nil
}

func (f *fakeRepo) Get(_ context.Context, companyID, id int64) (*Sale, error) {
	doc, ok := f.state.docs[id]
	if !ok || doc.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

func (f *fakeRepo) List(_ context.Context, req ListSalesRequest) ([]Sale, int, error) {
	var out []Sale
	for _, doc := range f.state.docs {
		if doc.CompanyID == req.CompanyID {
			out = append(out, *doc)
		}
	}
	return out, len(out), nil
}

type fakeTx struct {
	state *fakeState
}

func (t *fakeTx) InsertHeader(_ context.Context, doc *Sale) (int64, error) {
	for _, existing := range t.state.docs {
		if existing.CompanyID == doc.CompanyID && existing.Number == doc.Number {
			return 0, ErrDuplicateNumber
		}
	}
	id := t.state.nextID
	t.state.nextID++
	copied := *doc
	copied.ID = id
	t.state.docs[id] = &copied
	return id, nil
}

func (t *fakeTx) InsertLines(_ context.Context, saleID int64, lines []Line) error {
	if t.state.failLines {
		return errors.New("insert lines: boom")
	}
	t.state.docs[saleID].Lines = lines
	return nil
}

// IssueStock mirrors the conditional decrement: the update only matches
// when enough is on hand, otherwise the caller gets the available quantity.
func (t *fakeTx) IssueStock(_ context.Context, _, productID int64, qty decimal.Decimal, _ int64) (decimal.Decimal, error) {
	available := t.state.stock[productID]
	if available.LessThan(qty) {
		return decimal.Zero, &stock.InsufficientError{ProductID: productID, Requested: qty, Available: available}
	}
	balance := available.Sub(qty)
	t.state.stock[productID] = balance
	return balance, nil
}

type fakeParties struct {
	parties map[int64]partners.Party
}

func (f *fakeParties) Resolve(_ context.Context, companyID, id int64, wanted ...partners.Role) (*partners.Party, error) {
	p, ok := f.parties[id]
	if !ok || p.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	if !p.HasRole(wanted...) {
		return nil, fmt.Errorf("%w: party %d has role %s", httpx.ErrInvalidRole, id, p.Role)
	}
	return &p, nil
}

// fakeProducts serves product snapshots whose CurrentStock tracks the shared
// fake ledger, so the pre-check sees what the decrement will see.
type fakeProducts struct {
	products map[int64]catalog.Product
	state    *fakeState
}

func (f *fakeProducts) ResolveMany(_ context.Context, companyID int64, ids []int64) (map[int64]catalog.Product, error) {
	out := map[int64]catalog.Product{}
	for _, id := range ids {
		p, ok := f.products[id]
		if !ok || p.CompanyID != companyID {
			return nil, fmt.Errorf("%w: products %v not found", httpx.ErrNotFound, []int64{id})
		}
		p.CurrentStock = f.state.stock[id]
		out[id] = p
	}
	return out, nil
}

type fakeIdem struct {
	keys map[string]bool
}

func (f *fakeIdem) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdem) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

type fakeAudit struct {
	records []shared.AuditLog
}

func (f *fakeAudit) Record(_ context.Context, log shared.AuditLog) error {
	f.records = append(f.records, log)
	return nil
}

type fakeViews struct {
	invalidated []int64
}

func (f *fakeViews) Invalidate(_ context.Context, companyID int64) error {
	f.invalidated = append(f.invalidated, companyID)
	return nil
}

type fixture struct {
	repo     *fakeRepo
	products *fakeProducts
	idem     *fakeIdem
	audit    *fakeAudit
	views    *fakeViews
	svc      *Service
}

func newFixture() *fixture {
	repo := newFakeRepo()
	repo.state.stock[100] = decimal.NewFromInt(10)
	repo.state.stock[102] = decimal.NewFromInt(3)

	idem := &fakeIdem{keys: map[string]bool{}}
	audit := &fakeAudit{}
	views := &fakeViews{}
	parties := &fakeParties{parties: map[int64]partners.Party{
		20: {ID: 20, CompanyID: 1, Name: "Globex Retail", Role: partners.RoleClient},
		21: {ID: 21, CompanyID: 1, Name: "Acme Supplies", Role: partners.RoleSupplier},
	}}
	products := &fakeProducts{
		products: map[int64]catalog.Product{
			100: {ID: 100, CompanyID: 1, Name: "Widget", VATRate: decimal.NewFromInt(19)},
			101: {ID: 101, CompanyID: 1, Name: "Installation", IsService: true},
			102: {ID: 102, CompanyID: 1, Name: "Gadget", VATRate: decimal.NewFromInt(19)},
		},
		state: repo.state,
	}
	return &fixture{
		repo:     repo,
		products: products,
		idem:     idem,
		audit:    audit,
		views:    views,
		svc:      NewService(repo, parties, products, idem, audit, views, nil),
	}
}

func validReq() CreateSaleRequest {
	return CreateSaleRequest{
		Number:   "INV-2026-001",
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ClientID: 20,
		Lines: []LineInput{
			{ProductID: 100, Quantity: decimal.NewFromInt(4), UnitPriceBase: decimal.NewFromInt(10)},
		},
	}
}

func TestCreateDecrementsStockByExactQuantity(t *testing.T) {
	fx := newFixture()

	doc, err := fx.svc.Create(context.Background(), 1, 7, validReq())
	require.NoError(t, err)

	require.True(t, fx.repo.state.stock[100].Equal(decimal.NewFromInt(6)))
	require.Equal(t, DocumentDraft, doc.DocumentStatus)
	require.Len(t, fx.audit.records, 1)
	require.Equal(t, []int64{1}, fx.views.invalidated, "commit must refresh the warehouse view")
}

func TestCreateLineMathWithDiscountAndVAT(t *testing.T) {
	fx := newFixture()

	req := validReq()
	req.Lines = []LineInput{{
		ProductID:       100,
		Quantity:        decimal.NewFromInt(4),
		UnitPriceBase:   decimal.NewFromInt(10),
		DiscountPercent: decimal.NewFromInt(25),
	}}
	doc, err := fx.svc.Create(context.Background(), 1, 7, req)
	require.NoError(t, err)

	// gross 40, discount 10, net 30, vat 5.70, total 35.70
	line := doc.Lines[0]
	require.True(t, line.DiscountAmount.Equal(decimal.NewFromInt(10)), "discount %s", line.DiscountAmount)
	require.True(t, line.VATAmount.Equal(decimal.RequireFromString("5.70")), "vat %s", line.VATAmount)
	require.True(t, line.LineTotal.Equal(decimal.RequireFromString("35.70")), "line total %s", line.LineTotal)
	require.True(t, doc.Subtotal.Equal(decimal.NewFromInt(30)))
	require.True(t, doc.DiscountAmount.Equal(decimal.NewFromInt(10)))
	require.True(t, doc.Total.Equal(decimal.RequireFromString("35.70")))
}

func TestCreateReportsEveryShortfall(t *testing.T) {
	fx := newFixture()

	req := validReq()
	req.Lines = []LineInput{
		{ProductID: 100, Quantity: decimal.NewFromInt(20), UnitPriceBase: decimal.NewFromInt(10)},
		{ProductID: 102, Quantity: decimal.NewFromInt(5), UnitPriceBase: decimal.NewFromInt(8)},
	}
	_, err := fx.svc.Create(context.Background(), 1, 7, req)

	var insuf *InsufficientStockError
	require.True(t, errors.As(err, &insuf))
	require.Len(t, insuf.Shortfalls, 2)
	require.Equal(t, "Widget", insuf.Shortfalls[0].Name)
	require.True(t, insuf.Shortfalls[0].Available.Equal(decimal.NewFromInt(10)))
	require.Equal(t, "Gadget", insuf.Shortfalls[1].Name)
	require.True(t, insuf.Shortfalls[1].Available.Equal(decimal.NewFromInt(3)))

	// Nothing was written.
	require.Empty(t, fx.repo.state.docs)
	require.True(t, fx.repo.state.stock[100].Equal(decimal.NewFromInt(10)))
	require.True(t, fx.repo.state.stock[102].Equal(decimal.NewFromInt(3)))
	require.Empty(t, fx.views.invalidated, "a rejected posting must not touch the view cache")
}

func TestCreateConditionalDecrementCatchesConcurrentDrain(t *testing.T) {
	fx := newFixture()

	// The snapshot passed the pre-check, but by transaction time another
	// sale drained the product. The conditional decrement must reject it
	// and leave no partial document behind.
	drained := false
	fx.svc = NewService(fx.repo, &fakeParties{parties: map[int64]partners.Party{
		20: {ID: 20, CompanyID: 1, Name: "Globex Retail", Role: partners.RoleClient},
	}}, resolverFunc(func(ctx context.Context, companyID int64, ids []int64) (map[int64]catalog.Product, error) {
		out, err := fx.products.ResolveMany(ctx, companyID, ids)
		if err == nil && !drained {
			drained = true
			fx.repo.state.stock[100] = decimal.NewFromInt(1)
		}
		return out, err
	}), fx.idem, fx.audit, fx.views, nil)

	_, err := fx.svc.Create(context.Background(), 1, 7, validReq())

	var insuf *InsufficientStockError
	require.True(t, errors.As(err, &insuf))
	require.Len(t, insuf.Shortfalls, 1)
	require.True(t, insuf.Shortfalls[0].Available.Equal(decimal.NewFromInt(1)))

	require.Empty(t, fx.repo.state.docs)
	require.True(t, fx.repo.state.stock[100].Equal(decimal.NewFromInt(1)))
}

type resolverFunc func(ctx context.Context, companyID int64, ids []int64) (map[int64]catalog.Product, error)

func (f resolverFunc) ResolveMany(ctx context.Context, companyID int64, ids []int64) (map[int64]catalog.Product, error) {
	return f(ctx, companyID, ids)
}

func TestCreateSkipsStockForServices(t *testing.T) {
	fx := newFixture()

	req := validReq()
	req.Lines = append(req.Lines, LineInput{
		ProductID: 101, Quantity: decimal.NewFromInt(2), UnitPriceBase: decimal.NewFromInt(80),
	})
	doc, err := fx.svc.Create(context.Background(), 1, 7, req)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 2)

	_, touched := fx.repo.state.stock[101]
	require.False(t, touched)
}

func TestCreateRejectsNonClientParty(t *testing.T) {
	fx := newFixture()

	req := validReq()
	req.ClientID = 21
	_, err := fx.svc.Create(context.Background(), 1, 7, req)
	require.True(t, errors.Is(err, httpx.ErrInvalidRole))
}

func TestCreateDuplicateNumberConflicts(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.Create(context.Background(), 1, 7, validReq())
	require.NoError(t, err)

	_, err = fx.svc.Create(context.Background(), 1, 7, validReq())
	require.True(t, errors.Is(err, httpx.ErrConflict))

	// Stock was only issued once.
	require.True(t, fx.repo.state.stock[100].Equal(decimal.NewFromInt(6)))
}

func TestCreateFailureLeavesNoTrace(t *testing.T) {
	fx := newFixture()
	fx.repo.state.failLines = true

	_, err := fx.svc.Create(context.Background(), 1, 7, validReq())
	require.Error(t, err)

	require.Empty(t, fx.repo.state.docs)
	require.True(t, fx.repo.state.stock[100].Equal(decimal.NewFromInt(10)))

	// The idempotency reservation is released so a retry can succeed.
	fx.repo.state.failLines = false
	_, err = fx.svc.Create(context.Background(), 1, 7, validReq())
	require.NoError(t, err)
}

func TestCreateSellToZeroThenReject(t *testing.T) {
	fx := newFixture()

	req := validReq()
	req.Lines[0].Quantity = decimal.NewFromInt(10)
	_, err := fx.svc.Create(context.Background(), 1, 7, req)
	require.NoError(t, err)
	require.True(t, fx.repo.state.stock[100].IsZero())

	req.Number = "INV-2026-002"
	req.Lines[0].Quantity = decimal.NewFromInt(1)
	_, err = fx.svc.Create(context.Background(), 1, 7, req)
	var insuf *InsufficientStockError
	require.True(t, errors.As(err, &insuf))
}

func TestCreateRejectsDiscountOutOfRange(t *testing.T) {
	fx := newFixture()

	req := validReq()
	req.Lines[0].DiscountPercent = decimal.NewFromInt(101)
	_, err := fx.svc.Create(context.Background(), 1, 7, req)
	require.True(t, errors.Is(err, httpx.ErrValidation))
}
