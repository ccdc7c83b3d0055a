package purchases

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status values mirror the document lifecycle. Newly posted purchases are
// DRAFT with PENDING payment and delivery.
const (
	PaymentPending  = "PENDING"
	DeliveryPending = "PENDING"
	DocumentDraft   = "DRAFT"
)

// Purchase is a posted goods-receipt document. Amounts are denormalized on
// the header and must equal the sums over the lines.
type Purchase struct {
	ID             int64           `json:"id"`
	CompanyID      int64           `json:"company_id"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	SupplierID     int64           `json:"supplier_id"`
	SupplierName   string          `json:"supplier_name,omitempty"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	Total          decimal.Decimal `json:"total_amount"`
	PaymentStatus  string          `json:"payment_status"`
	DeliveryStatus string          `json:"delivery_status"`
	DocumentStatus string          `json:"document_status"`
	Notes          string          `json:"notes,omitempty"`
	Lines          []Line          `json:"lines"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Line is one received product quantity.
type Line struct {
	ID          int64           `json:"id"`
	PurchaseID  int64           `json:"purchase_id"`
	LineNumber  int             `json:"line_number"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Notes       string          `json:"notes,omitempty"`
}
