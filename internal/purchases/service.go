package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/partners"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PartyResolver fetches a party and enforces its role.
type PartyResolver interface {
	Resolve(ctx context.Context, companyID, id int64, wanted ...partners.Role) (*partners.Party, error)
}

// ProductResolver fetches all referenced products or fails.
type ProductResolver interface {
	ResolveMany(ctx context.Context, companyID int64, ids []int64) (map[int64]catalog.Product, error)
}

// IdempotencyGuard reserves document numbers before posting.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Auditor records the audit trail for mutating flows.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ViewInvalidator drops derived stock views once a posting commits.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, companyID int64) error
}

// Service posts and reads purchase documents.
type Service struct {
	repo     Repository
	parties  PartyResolver
	products ProductResolver
	idem     IdempotencyGuard
	audit    Auditor
	views    ViewInvalidator
	metrics  *observability.Metrics
}

func NewService(repo Repository, parties PartyResolver, products ProductResolver, idem IdempotencyGuard, audit Auditor, views ViewInvalidator, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, parties: parties, products: products, idem: idem, audit: audit, views: views, metrics: metrics}
}

const idempotencyModule = "purchases"

func idempotencyKey(companyID int64, number string) string {
	return fmt.Sprintf("PUR:%d:%s", companyID, number)
}

// Create validates and posts a purchase. Header, lines, stock increments and
// movement rows commit atomically; any failure leaves the ledger untouched.
func (s *Service) Create(ctx context.Context, companyID, actorID int64, req CreatePurchaseRequest) (*Purchase, error) {
	cur := strings.ToUpper(req.Currency)
	if cur == "" {
		cur = "EUR"
	}
	if _, err := currency.ParseISO(cur); err != nil {
		return nil, fmt.Errorf("%w: unknown currency %q", httpx.ErrValidation, cur)
	}
	for i, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", httpx.ErrValidation, i+1)
		}
		if line.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: line %d unit_price must not be negative", httpx.ErrValidation, i+1)
		}
		if line.VATRate != nil && (line.VATRate.IsNegative() || line.VATRate.GreaterThan(decimal.NewFromInt(100))) {
			return nil, fmt.Errorf("%w: line %d vat_rate must be between 0 and 100", httpx.ErrValidation, i+1)
		}
	}

	supplier, err := s.parties.Resolve(ctx, companyID, req.SupplierID, partners.RoleSupplier)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(req.Lines))
	for _, line := range req.Lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.ResolveMany(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}

	doc := &Purchase{
		CompanyID:      companyID,
		Number:         req.Number,
		Date:           req.Date,
		SupplierID:     supplier.ID,
		SupplierName:   supplier.Name,
		Currency:       cur,
		PaymentStatus:  PaymentPending,
		DeliveryStatus: DeliveryPending,
		DocumentStatus: DocumentDraft,
		Notes:          req.Notes,
		CreatedBy:      actorID,
	}

	subtotal := decimal.Zero
	totalVAT := decimal.Zero
	for i, in := range req.Lines {
		product := products[in.ProductID]
		rate := product.VATRate
		if in.VATRate != nil {
			rate = *in.VATRate
		}
		lineTotal := in.Quantity.Mul(in.UnitPrice).Round(2)
		vatAmount := lineTotal.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
		subtotal = subtotal.Add(lineTotal)
		totalVAT = totalVAT.Add(vatAmount)
		doc.Lines = append(doc.Lines, Line{
			LineNumber:  i + 1,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			VATRate:     rate,
			VATAmount:   vatAmount,
			LineTotal:   lineTotal,
			Notes:       in.Notes,
		})
	}
	doc.Subtotal = subtotal
	doc.VATAmount = totalVAT
	doc.Total = subtotal.Add(totalVAT)

	key := idempotencyKey(companyID, req.Number)
	if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			s.count("conflict")
			return nil, fmt.Errorf("%w: document number %s already posted", httpx.ErrConflict, req.Number)
		}
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertHeader(ctx, doc)
		if err != nil {
			return err
		}
		doc.ID = id
		for i := range doc.Lines {
			doc.Lines[i].PurchaseID = id
		}
		if err := tx.InsertLines(ctx, id, doc.Lines); err != nil {
			return err
		}
		for _, line := range doc.Lines {
			if products[line.ProductID].IsService {
				continue
			}
			if _, err := tx.ReceiveStock(ctx, companyID, line.ProductID, line.Quantity, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// The reservation must not outlive a failed posting.
		if delErr := s.idem.Delete(ctx, key); delErr != nil {
			err = errors.Join(err, delErr)
		}
		if errors.Is(err, ErrDuplicateNumber) {
			s.count("conflict")
			return nil, fmt.Errorf("%w: document number %s already posted", httpx.ErrConflict, req.Number)
		}
		s.count("error")
		return nil, err
	}

	// The committed increments must be visible through the warehouse view
	// right away, not after the cache TTL.
	_ = s.views.Invalidate(ctx, companyID)

	// Audit failures do not undo a committed document.
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:   actorID,
		CompanyID: companyID,
		Action:    "purchase.create",
		Entity:    "purchase",
		EntityID:  fmt.Sprintf("%d", doc.ID),
		Meta: map[string]any{
			"document_number": doc.Number,
			"supplier_id":     doc.SupplierID,
			"total_amount":    doc.Total.String(),
			"lines":           len(doc.Lines),
		},
	})

	s.count("created")
	return doc, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (*Purchase, error) {
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.CountDocument("purchase", outcome)
	}
}
