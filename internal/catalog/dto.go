package catalog

import "github.com/shopspring/decimal"

// CreateProductRequest registers a catalog item. Stock on hand always starts
// at zero; receiving a purchase is the only way to raise it.
type CreateProductRequest struct {
	Code        string          `json:"code" validate:"required,min=1,max=60"`
	Name        string          `json:"name" validate:"required,min=2,max=200"`
	Unit        string          `json:"unit" validate:"required,max=20"`
	Category    string          `json:"category" validate:"omitempty,max=100"`
	Subcategory string          `json:"subcategory" validate:"omitempty,max=100"`
	Price       decimal.Decimal `json:"price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	Currency    string          `json:"currency" validate:"required,len=3"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	IsService   bool            `json:"is_service"`
	MinStock    decimal.Decimal `json:"min_stock"`
}

// UpdateProductRequest carries mutable product fields. Nil means unchanged.
// CurrentStock is deliberately absent.
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=2,max=200"`
	Unit        *string          `json:"unit" validate:"omitempty,max=20"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Subcategory *string          `json:"subcategory" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price"`
	CostPrice   *decimal.Decimal `json:"cost_price"`
	Currency    *string          `json:"currency" validate:"omitempty,len=3"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
	MinStock    *decimal.Decimal `json:"min_stock"`
	IsActive    *bool            `json:"is_active"`
}

// ListProductsRequest filters the catalog list.
type ListProductsRequest struct {
	CompanyID int64
	Category  string
	Active    *bool
	Search    string
	Limit     int
	Offset    int
}
