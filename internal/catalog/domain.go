package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a tenant-scoped catalog item. CurrentStock is the authoritative
// quantity on hand; it is mutated only through purchase and sale posting,
// never through the catalog endpoints.
type Product struct {
	ID           int64           `json:"id"`
	CompanyID    int64           `json:"company_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Category     string          `json:"category,omitempty"`
	Subcategory  string          `json:"subcategory,omitempty"`
	Price        decimal.Decimal `json:"price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Currency     string          `json:"currency"`
	VATRate      decimal.Decimal `json:"vat_rate"`
	IsService    bool            `json:"is_service"`
	IsActive     bool            `json:"is_active"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TracksStock reports whether stock logic applies to this product.
func (p Product) TracksStock() bool {
	return !p.IsService
}
