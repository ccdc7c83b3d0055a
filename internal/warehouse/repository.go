package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Filter narrows the product set before classification. Status filtering
// happens after, in the service, so stats always cover the whole set.
type Filter struct {
	CompanyID  int64
	Category   string
	ActiveOnly bool
}

// Repository lists the stock-tracked products feeding the view.
type Repository interface {
	ListStocked(ctx context.Context, f Filter) ([]Row, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListStocked(ctx context.Context, f Filter) ([]Row, error) {
	where := `company_id = $1 AND is_service = FALSE`
	args := []interface{}{f.CompanyID}
	if f.ActiveOnly {
		where += ` AND is_active = TRUE`
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	q := fmt.Sprintf(`
SELECT id, code, name, unit, category, subcategory,
	current_stock, min_stock, cost_price, price, currency, is_active
FROM products
WHERE %s
ORDER BY category, name`, where)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var current, min, cost, price pgtype.Numeric
		if err := rows.Scan(
			&row.ID, &row.Code, &row.Name, &row.Unit, &row.Category, &row.Subcategory,
			&current, &min, &cost, &price, &row.Currency, &row.IsActive,
		); err != nil {
			return nil, err
		}
		row.CurrentStock = db.NumericToDecimal(current)
		row.MinStock = db.NumericToDecimal(min)
		row.CostPrice = db.NumericToDecimal(cost)
		row.Price = db.NumericToDecimal(price)
		out = append(out, row)
	}
	return out, rows.Err()
}
