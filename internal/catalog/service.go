package catalog

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/currency"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Service wraps catalog business rules.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validateCurrency(code string) error {
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("%w: unknown currency %q", httpx.ErrValidation, code)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, companyID int64, req CreateProductRequest) (*Product, error) {
	cur := strings.ToUpper(req.Currency)
	if err := validateCurrency(cur); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() || req.CostPrice.IsNegative() || req.VATRate.IsNegative() || req.MinStock.IsNegative() {
		return nil, fmt.Errorf("%w: price, cost_price, vat_rate and min_stock must not be negative", httpx.ErrValidation)
	}

	product := Product{
		CompanyID:   companyID,
		Code:        req.Code,
		Name:        req.Name,
		Unit:        req.Unit,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Price:       req.Price,
		CostPrice:   req.CostPrice,
		Currency:    cur,
		VATRate:     req.VATRate,
		IsService:   req.IsService,
		IsActive:    true,
		MinStock:    req.MinStock,
	}
	id, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	product.ID = id
	return &product, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (*Product, error) {
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) Update(ctx context.Context, companyID, id int64, req UpdateProductRequest) (*Product, error) {
	product, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Subcategory != nil {
		product.Subcategory = *req.Subcategory
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.CostPrice != nil {
		product.CostPrice = *req.CostPrice
	}
	if req.Currency != nil {
		cur := strings.ToUpper(*req.Currency)
		if err := validateCurrency(cur); err != nil {
			return nil, err
		}
		product.Currency = cur
	}
	if req.VATRate != nil {
		product.VATRate = *req.VATRate
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if product.Price.IsNegative() || product.CostPrice.IsNegative() || product.VATRate.IsNegative() || product.MinStock.IsNegative() {
		return nil, fmt.Errorf("%w: price, cost_price, vat_rate and min_stock must not be negative", httpx.ErrValidation)
	}
	if err := s.repo.Update(ctx, *product); err != nil {
		return nil, err
	}
	return product, nil
}

// ResolveMany fetches the referenced products and fails if any id is missing.
// Document posting uses this so a document can never reference a product
// outside the tenant.
func (s *Service) ResolveMany(ctx context.Context, companyID int64, ids []int64) (map[int64]Product, error) {
	products, err := s.repo.ResolveMany(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: products %v not found", httpx.ErrNotFound, missing)
	}
	return products, nil
}
