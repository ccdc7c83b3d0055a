package stock

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

func TestInsufficientErrorMessage(t *testing.T) {
	err := &InsufficientError{
		ProductID: 7,
		Requested: decimal.NewFromInt(20),
		Available: decimal.NewFromInt(15),
	}
	require.EqualError(t, err, "stock: product 7 has 15 on hand, 20 requested")
}

type fakeRow struct {
	n   pgtype.Numeric
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*pgtype.Numeric)) = r.n
	return nil
}

// fakeTx evaluates ledger SQL the way the database would: the conditional
// predicate decides between a returned balance and no row at all.
type fakeTx struct {
	stock   decimal.Decimal
	tracked bool

	updates   []string
	movements [][]any
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if strings.Contains(sql, "INSERT INTO stock_movements") {
		f.movements = append(f.movements, args)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if !strings.Contains(sql, "UPDATE products") {
		// Availability probe after a failed decrement.
		if !f.tracked {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{n: db.DecimalToNumeric(f.stock)}
	}

	f.updates = append(f.updates, sql)
	if !f.tracked {
		return fakeRow{err: pgx.ErrNoRows}
	}
	qty := db.NumericToDecimal(args[2].(pgtype.Numeric))
	if strings.Contains(sql, "current_stock >= $3") {
		if f.stock.LessThan(qty) {
			return fakeRow{err: pgx.ErrNoRows}
		}
		f.stock = f.stock.Sub(qty)
	} else {
		f.stock = f.stock.Add(qty)
	}
	return fakeRow{n: db.DecimalToNumeric(f.stock)}
}

func TestReceiveIncrementsAndLogsMovement(t *testing.T) {
	tx := &fakeTx{stock: decimal.NewFromInt(2), tracked: true}
	ledger := NewLedger()

	balance, err := ledger.Receive(context.Background(), tx, 1, 100, decimal.NewFromInt(5), RefPurchase, 42)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(7)))

	require.Len(t, tx.movements, 1)
	move := tx.movements[0]
	require.Equal(t, string(RefPurchase), move[3])
	require.Equal(t, int64(42), move[4])
	require.True(t, db.NumericToDecimal(move[5].(pgtype.Numeric)).Equal(decimal.NewFromInt(5)))
	require.True(t, db.NumericToDecimal(move[6].(pgtype.Numeric)).Equal(decimal.NewFromInt(7)))
}

func TestIssueDecrementsWhenEnoughOnHand(t *testing.T) {
	tx := &fakeTx{stock: decimal.NewFromInt(10), tracked: true}
	ledger := NewLedger()

	balance, err := ledger.Issue(context.Background(), tx, 1, 100, decimal.NewFromInt(4), RefSale, 9)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.NewFromInt(6)))

	// The movement logs the signed delta and the resulting balance.
	require.Len(t, tx.movements, 1)
	move := tx.movements[0]
	require.Equal(t, string(RefSale), move[3])
	require.True(t, db.NumericToDecimal(move[5].(pgtype.Numeric)).Equal(decimal.NewFromInt(-4)))
	require.True(t, db.NumericToDecimal(move[6].(pgtype.Numeric)).Equal(decimal.NewFromInt(6)))
}

func TestIssueGuardsWithConditionalPredicate(t *testing.T) {
	tx := &fakeTx{stock: decimal.NewFromInt(10), tracked: true}
	ledger := NewLedger()

	_, err := ledger.Issue(context.Background(), tx, 1, 100, decimal.NewFromInt(1), RefSale, 9)
	require.NoError(t, err)

	// The decrement must carry its own sufficiency check; a separate
	// read-then-write would reopen the oversell race.
	require.Len(t, tx.updates, 1)
	require.Contains(t, tx.updates[0], "current_stock >= $3")
	require.Contains(t, tx.updates[0], "is_service = FALSE")
}

func TestIssueInsufficientReportsAvailability(t *testing.T) {
	tx := &fakeTx{stock: decimal.NewFromInt(3), tracked: true}
	ledger := NewLedger()

	_, err := ledger.Issue(context.Background(), tx, 1, 100, decimal.NewFromInt(5), RefSale, 9)

	var insuf *InsufficientError
	require.ErrorAs(t, err, &insuf)
	require.Equal(t, int64(100), insuf.ProductID)
	require.True(t, insuf.Requested.Equal(decimal.NewFromInt(5)))
	require.True(t, insuf.Available.Equal(decimal.NewFromInt(3)))

	// No write happened: stock untouched, no movement row.
	require.True(t, tx.stock.Equal(decimal.NewFromInt(3)))
	require.Empty(t, tx.movements)
}

func TestReceiveRejectsUntrackedProduct(t *testing.T) {
	tx := &fakeTx{tracked: false}
	ledger := NewLedger()

	_, err := ledger.Receive(context.Background(), tx, 1, 100, decimal.NewFromInt(5), RefPurchase, 42)
	require.ErrorContains(t, err, "not stock-tracked")
	require.Empty(t, tx.movements)
}
