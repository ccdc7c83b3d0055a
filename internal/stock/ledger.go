package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// InsufficientError reports a conditional decrement that matched no row:
// the product did not hold enough stock at the moment of the update.
type InsufficientError struct {
	ProductID int64
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("stock: product %d has %s on hand, %s requested",
		e.ProductID, e.Available.String(), e.Requested.String())
}

// Ledger applies stock movements. Both methods expect to run inside the
// document transaction so the quantity change, the movement row, and the
// document rows commit or roll back together.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Receive unconditionally increments current_stock by qty and appends the
// movement. The increment is a single UPDATE, not a read-modify-write, so
// concurrent receipts of the same product cannot lose quantity.
func (l *Ledger) Receive(ctx context.Context, tx db.DBTX, companyID, productID int64, qty decimal.Decimal, kind RefKind, refID int64) (decimal.Decimal, error) {
	const q = `
UPDATE products
SET current_stock = current_stock + $3, updated_at = NOW()
WHERE company_id = $1 AND id = $2 AND is_service = FALSE
RETURNING current_stock`
	var balance decimal.Decimal
	if err := scanBalance(tx.QueryRow(ctx, q, companyID, productID, db.DecimalToNumeric(qty)), &balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("stock: product %d not found or not stock-tracked", productID)
		}
		return decimal.Zero, err
	}
	if err := l.appendMovement(ctx, tx, companyID, productID, kind, refID, qty, balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Issue decrements current_stock by qty only when enough is on hand. A zero
// row match means insufficient stock and yields *InsufficientError carrying
// the quantity actually available, so callers can keep collecting shortfalls
// before rolling the transaction back.
func (l *Ledger) Issue(ctx context.Context, tx db.DBTX, companyID, productID int64, qty decimal.Decimal, kind RefKind, refID int64) (decimal.Decimal, error) {
	const q = `
UPDATE products
SET current_stock = current_stock - $3, updated_at = NOW()
WHERE company_id = $1 AND id = $2 AND is_service = FALSE AND current_stock >= $3
RETURNING current_stock`
	var balance decimal.Decimal
	err := scanBalance(tx.QueryRow(ctx, q, companyID, productID, db.DecimalToNumeric(qty)), &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		available, availErr := l.available(ctx, tx, companyID, productID)
		if availErr != nil {
			return decimal.Zero, availErr
		}
		return decimal.Zero, &InsufficientError{ProductID: productID, Requested: qty, Available: available}
	}
	if err != nil {
		return decimal.Zero, err
	}
	if err := l.appendMovement(ctx, tx, companyID, productID, kind, refID, qty.Neg(), balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (l *Ledger) available(ctx context.Context, tx db.DBTX, companyID, productID int64) (decimal.Decimal, error) {
	const q = `SELECT current_stock FROM products WHERE company_id = $1 AND id = $2`
	var balance decimal.Decimal
	err := scanBalance(tx.QueryRow(ctx, q, companyID, productID), &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("stock: product %d not found", productID)
	}
	return balance, err
}

func (l *Ledger) appendMovement(ctx context.Context, tx db.DBTX, companyID, productID int64, kind RefKind, refID int64, delta, balance decimal.Decimal) error {
	const q = `
INSERT INTO stock_movements (ref, company_id, product_id, ref_kind, ref_id, delta, balance, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`
	_, err := tx.Exec(ctx, q,
		uuid.New(), companyID, productID, string(kind), refID,
		db.DecimalToNumeric(delta), db.DecimalToNumeric(balance),
	)
	if err != nil {
		return fmt.Errorf("stock: append movement: %w", err)
	}
	return nil
}

func scanBalance(row pgx.Row, out *decimal.Decimal) error {
	var n pgtype.Numeric
	if err := row.Scan(&n); err != nil {
		return err
	}
	*out = db.NumericToDecimal(n)
	return nil
}
