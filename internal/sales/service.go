package sales

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
	"github.com/meridian-erp/meridian-erp/internal/stock"
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

// Service posts and reads sale documents.
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

const idempotencyModule = "sales"

func idempotencyKey(companyID int64, number string) string {
	return fmt.Sprintf("SAL:%d:%s", companyID, number)
}

var hundred = decimal.NewFromInt(100)

// Create validates and posts a sale. Sufficiency is checked twice: a
// pre-check against the current snapshot collects every shortfall for the
// error payload, then each in-transaction decrement is conditional, so a
// concurrent sale draining the same product still cannot push stock below
// zero. The transaction runs at ReadCommitted, so a concurrent decrement of
// the same row blocks on the row lock and the predicate re-evaluates against
// the committed value; shortfalls found this way are collected the same way
// before the rollback.
func (s *Service) Create(ctx context.Context, companyID, actorID int64, req CreateSaleRequest) (*Sale, error) {
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
		if line.UnitPriceBase.IsNegative() {
			return nil, fmt.Errorf("%w: line %d unit_price_base must not be negative", httpx.ErrValidation, i+1)
		}
		if line.DiscountPercent.IsNegative() || line.DiscountPercent.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: line %d discount_percent must be between 0 and 100", httpx.ErrValidation, i+1)
		}
		if line.VATRate != nil && (line.VATRate.IsNegative() || line.VATRate.GreaterThan(hundred)) {
			return nil, fmt.Errorf("%w: line %d vat_rate must be between 0 and 100", httpx.ErrValidation, i+1)
		}
	}

	client, err := s.parties.Resolve(ctx, companyID, req.ClientID, partners.RoleClient)
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

	// Pre-check against the snapshot, collecting every shortfall so the
	// response can name all offending lines. The authoritative check is the
	// conditional decrement below.
	var shortfalls []Shortfall
	for _, line := range req.Lines {
		product := products[line.ProductID]
		if product.IsService {
			continue
		}
		if line.Quantity.GreaterThan(product.CurrentStock) {
			shortfalls = append(shortfalls, Shortfall{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: line.Quantity,
				Available: product.CurrentStock,
			})
		}
	}
	if len(shortfalls) > 0 {
		s.count("insufficient")
		return nil, &InsufficientStockError{Shortfalls: shortfalls}
	}

	doc := &Sale{
		CompanyID:      companyID,
		Number:         req.Number,
		Date:           req.Date,
		DeliveryDate:   req.DeliveryDate,
		DueDate:        req.DueDate,
		ClientID:       client.ID,
		ClientName:     client.Name,
		Currency:       cur,
		PaymentStatus:  PaymentPending,
		DeliveryStatus: DeliveryPending,
		DocumentStatus: DocumentDraft,
		Notes:          req.Notes,
		CreatedBy:      actorID,
	}

	subtotal := decimal.Zero
	totalDiscount := decimal.Zero
	totalVAT := decimal.Zero
	for i, in := range req.Lines {
		product := products[in.ProductID]
		rate := product.VATRate
		if in.VATRate != nil {
			rate = *in.VATRate
		}
		gross := in.Quantity.Mul(in.UnitPriceBase)
		discount := gross.Mul(in.DiscountPercent).Div(hundred).Round(2)
		net := gross.Sub(discount).Round(2)
		vat := net.Mul(rate).Div(hundred).Round(2)
		doc.Lines = append(doc.Lines, Line{
			LineNumber:      i + 1,
			ProductID:       product.ID,
			ProductName:     product.Name,
			Quantity:        in.Quantity,
			UnitPriceBase:   in.UnitPriceBase,
			DiscountPercent: in.DiscountPercent,
			DiscountAmount:  discount,
			VATRate:         rate,
			VATAmount:       vat,
			LineTotal:       net.Add(vat),
			Description:     in.Description,
		})
		subtotal = subtotal.Add(net)
		totalDiscount = totalDiscount.Add(discount)
		totalVAT = totalVAT.Add(vat)
	}
	doc.Subtotal = subtotal
	doc.DiscountAmount = totalDiscount
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
			doc.Lines[i].SaleID = id
		}
		if err := tx.InsertLines(ctx, id, doc.Lines); err != nil {
			return err
		}
		var txShortfalls []Shortfall
		for _, line := range doc.Lines {
			if products[line.ProductID].IsService {
				continue
			}
			_, err := tx.IssueStock(ctx, companyID, line.ProductID, line.Quantity, id)
			var insuf *stock.InsufficientError
			if errors.As(err, &insuf) {
				txShortfalls = append(txShortfalls, Shortfall{
					ProductID: insuf.ProductID,
					Name:      line.ProductName,
					Requested: insuf.Requested,
					Available: insuf.Available,
				})
				continue
			}
			if err != nil {
				return err
			}
		}
		if len(txShortfalls) > 0 {
			return &InsufficientStockError{Shortfalls: txShortfalls}
		}
		return nil
	})
	if err != nil {
		if delErr := s.idem.Delete(ctx, key); delErr != nil {
			err = errors.Join(err, delErr)
		}
		var insuf *InsufficientStockError
		if errors.As(err, &insuf) {
			s.count("insufficient")
			return nil, insuf
		}
		if errors.Is(err, ErrDuplicateNumber) {
			s.count("conflict")
			return nil, fmt.Errorf("%w: document number %s already posted", httpx.ErrConflict, req.Number)
		}
		s.count("error")
		return nil, err
	}

	// The committed decrements must be visible through the warehouse view
	// right away, not after the cache TTL.
	_ = s.views.Invalidate(ctx, companyID)

	// Audit failures do not undo a committed document.
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:   actorID,
		CompanyID: companyID,
		Action:    "sale.create",
		Entity:    "sale",
		EntityID:  fmt.Sprintf("%d", doc.ID),
		Meta: map[string]any{
			"document_number": doc.Number,
			"client_id":       doc.ClientID,
			"total_amount":    doc.Total.String(),
			"lines":           len(doc.Lines),
		},
	})

	s.count("created")
	return doc, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (*Sale, error) {
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.CountDocument("sale", outcome)
	}
}
