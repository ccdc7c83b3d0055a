package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateSaleRequest posts a sale document.
type CreateSaleRequest struct {
	Number       string      `json:"document_number" validate:"required,min=1,max=60"`
	Date         time.Time   `json:"document_date" validate:"required"`
	DeliveryDate *time.Time  `json:"delivery_date"`
	DueDate      *time.Time  `json:"due_date"`
	ClientID     int64       `json:"client_id" validate:"required,gt=0"`
	Currency     string      `json:"currency" validate:"omitempty,len=3"`
	Notes        string      `json:"notes" validate:"omitempty,max=1000"`
	Lines        []LineInput `json:"items" validate:"required,min=1,dive"`
}

// LineInput is one requested line. VATRate overrides the product's rate
// when present.
type LineInput struct {
	ProductID       int64            `json:"product_id" validate:"required,gt=0"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPriceBase   decimal.Decimal  `json:"unit_price_base"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	VATRate         *decimal.Decimal `json:"vat_rate"`
	Description     string           `json:"description" validate:"omitempty,max=500"`
}

// ListSalesRequest filters the sale list, newest first.
type ListSalesRequest struct {
	CompanyID      int64
	DocumentStatus string
	Limit          int
	Offset         int
}
