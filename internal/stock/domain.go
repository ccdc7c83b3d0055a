package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefKind names the document kind that caused a movement.
type RefKind string

const (
	RefPurchase RefKind = "PURCHASE"
	RefSale     RefKind = "SALE"
)

// Movement is one append-only row in the stock movement log. Delta is
// positive for receipts and negative for issues; Balance is the product's
// current_stock immediately after this movement was applied.
type Movement struct {
	ID        int64           `json:"id"`
	Ref       uuid.UUID       `json:"ref"`
	CompanyID int64           `json:"company_id"`
	ProductID int64           `json:"product_id"`
	RefKind   RefKind         `json:"ref_kind"`
	RefID     int64           `json:"ref_id"`
	Delta     decimal.Decimal `json:"delta"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}
