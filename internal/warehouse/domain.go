package warehouse

import "github.com/shopspring/decimal"

// Status classifies a product's stock level.
type Status string

const (
	StatusOK          Status = "OK"
	StatusLow         Status = "LOW"
	StatusOutOfStock  Status = "OUT_OF_STOCK"
	StatusOverstocked Status = "OVERSTOCKED"
)

// ValidStatus reports whether the value is a known status or the ALL filter.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOK, StatusLow, StatusOutOfStock, StatusOverstocked, "ALL":
		return true
	}
	return false
}

var three = decimal.NewFromInt(3)

// Classify derives the status from stock on hand versus the threshold.
// A zero min_stock product can be OUT_OF_STOCK or OK but never LOW or
// OVERSTOCKED.
func Classify(currentStock, minStock decimal.Decimal) Status {
	switch {
	case currentStock.IsZero():
		return StatusOutOfStock
	case currentStock.LessThan(minStock):
		return StatusLow
	case minStock.IsPositive() && currentStock.GreaterThan(minStock.Mul(three)):
		return StatusOverstocked
	default:
		return StatusOK
	}
}

// Row is one product as the warehouse view presents it.
type Row struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Category     string          `json:"category,omitempty"`
	Subcategory  string          `json:"subcategory,omitempty"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	Status       Status          `json:"status"`
	StockValue   decimal.Decimal `json:"stock_value"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	IsActive     bool            `json:"is_active"`
}

// Stats aggregates the whole (unfiltered-by-status) view.
type Stats struct {
	TotalProducts   int             `json:"total_products"`
	InStock         int             `json:"in_stock"`
	LowStock        int             `json:"low_stock"`
	OutOfStock      int             `json:"out_of_stock"`
	Overstocked     int             `json:"overstocked"`
	TotalStockValue decimal.Decimal `json:"total_stock_value"`
}

// CategorySummary rolls one category up.
type CategorySummary struct {
	Count      int             `json:"count"`
	TotalStock decimal.Decimal `json:"total_stock"`
	StockValue decimal.Decimal `json:"stock_value"`
}

// View is the full warehouse read model.
type View struct {
	Items      []Row                      `json:"items"`
	Stats      Stats                      `json:"stats"`
	ByCategory map[string]CategorySummary `json:"byCategory"`
}
