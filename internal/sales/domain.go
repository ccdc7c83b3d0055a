package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentPending  = "PENDING"
	DeliveryPending = "PENDING"
	DocumentDraft   = "DRAFT"
)

// Sale is a posted sale document. Amounts are denormalized on the header
// and must equal the sums over the lines.
type Sale struct {
	ID             int64           `json:"id"`
	CompanyID      int64           `json:"company_id"`
	Number         string          `json:"number"`
	Date           time.Time       `json:"date"`
	DeliveryDate   *time.Time      `json:"delivery_date,omitempty"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	ClientID       int64           `json:"client_id"`
	ClientName     string          `json:"client_name,omitempty"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
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

// Line is one sold product quantity. Subtotal accumulates NetAmount, the
// header total adds VAT on top.
type Line struct {
	ID              int64           `json:"id"`
	SaleID          int64           `json:"sale_id"`
	LineNumber      int             `json:"line_number"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPriceBase   decimal.Decimal `json:"unit_price_base"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	VATAmount       decimal.Decimal `json:"vat_amount"`
	LineTotal       decimal.Decimal `json:"line_total"`
	Description     string          `json:"description,omitempty"`
}

// Shortfall describes one line whose requested quantity exceeds the stock
// on hand.
type Shortfall struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

// InsufficientStockError carries every shortfall found, so one response can
// name all offending lines at once.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	return "sales: insufficient stock: " + strings.Join(e.Details(), "; ")
}

// Details renders one human-readable entry per shortfall.
func (e *InsufficientStockError) Details() []string {
	out := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		out[i] = fmt.Sprintf("%s: requested %s, available %s", s.Name, s.Requested.String(), s.Available.String())
	}
	return out
}
