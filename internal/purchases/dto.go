package purchases

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePurchaseRequest posts a goods-receipt document.
type CreatePurchaseRequest struct {
	Number     string      `json:"document_number" validate:"required,min=1,max=60"`
	Date       time.Time   `json:"document_date" validate:"required"`
	SupplierID int64       `json:"supplier_id" validate:"required,gt=0"`
	Currency   string      `json:"currency" validate:"omitempty,len=3"`
	Notes      string      `json:"notes" validate:"omitempty,max=1000"`
	Lines      []LineInput `json:"items" validate:"required,min=1,dive"`
}

// LineInput is one requested line. VATRate overrides the product's rate
// when present.
type LineInput struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	VATRate   *decimal.Decimal `json:"vat_rate"`
	Notes     string           `json:"notes" validate:"omitempty,max=500"`
}

// ListPurchasesRequest filters the purchase list, newest first.
type ListPurchasesRequest struct {
	CompanyID      int64
	DocumentStatus string
	Limit          int
	Offset         int
}
