package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository defines persistence operations for the catalog.
type Repository interface {
	Get(ctx context.Context, companyID, id int64) (*Product, error)
	// ResolveMany fetches products by id in one round trip. Missing ids are
	// simply absent from the result map.
	ResolveMany(ctx context.Context, companyID int64, ids []int64) (map[int64]Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	Create(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, p Product) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// ErrCodeTaken signals the product code is already used within the company.
var ErrCodeTaken = errors.New("catalog: product code already exists")

const productColumns = `id, company_id, code, name, unit, category, subcategory,
	price, cost_price, currency, vat_rate, is_service, is_active,
	current_stock, min_stock, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var price, cost, vatRate, currentStock, minStock pgtype.Numeric
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Unit, &p.Category, &p.Subcategory,
		&price, &cost, &p.Currency, &vatRate, &p.IsService, &p.IsActive,
		&currentStock, &minStock, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Price = db.NumericToDecimal(price)
	p.CostPrice = db.NumericToDecimal(cost)
	p.VATRate = db.NumericToDecimal(vatRate)
	p.CurrentStock = db.NumericToDecimal(currentStock)
	p.MinStock = db.NumericToDecimal(minStock)
	return &p, nil
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (*Product, error) {
	q := fmt.Sprintf(`SELECT %s FROM products WHERE company_id = $1 AND id = $2`, productColumns)
	return scanProduct(r.pool.QueryRow(ctx, q, companyID, id))
}

func (r *repository) ResolveMany(ctx context.Context, companyID int64, ids []int64) (map[int64]Product, error) {
	if len(ids) == 0 {
		return map[int64]Product{}, nil
	}
	q := fmt.Sprintf(`SELECT %s FROM products WHERE company_id = $1 AND id = ANY($2)`, productColumns)
	rows, err := r.pool.Query(ctx, q, companyID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = *p
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := `company_id = $1`
	args := []interface{}{req.CompanyID}
	if req.Category != "" {
		args = append(args, req.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if req.Active != nil {
		args = append(args, *req.Active)
		where += fmt.Sprintf(` AND is_active = $%d`, len(args))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR code ILIKE $%d)`, len(args), len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, req.Offset)
	listQ := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Product) (int64, error) {
	const q = `
INSERT INTO products (
	company_id, code, name, unit, category, subcategory,
	price, cost_price, currency, vat_rate, is_service, is_active,
	current_stock, min_stock, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, NOW(), NOW())
RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, q,
		p.CompanyID, p.Code, p.Name, p.Unit, p.Category, p.Subcategory,
		db.DecimalToNumeric(p.Price), db.DecimalToNumeric(p.CostPrice), p.Currency,
		db.DecimalToNumeric(p.VATRate), p.IsService, p.IsActive,
		db.DecimalToNumeric(p.MinStock),
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrCodeTaken
	}
	return id, err
}

func (r *repository) Update(ctx context.Context, p Product) error {
	const q = `
UPDATE products
SET name = $3, unit = $4, category = $5, subcategory = $6,
	price = $7, cost_price = $8, currency = $9, vat_rate = $10,
	min_stock = $11, is_active = $12, updated_at = NOW()
WHERE company_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, q,
		p.CompanyID, p.ID, p.Name, p.Unit, p.Category, p.Subcategory,
		db.DecimalToNumeric(p.Price), db.DecimalToNumeric(p.CostPrice), p.Currency,
		db.DecimalToNumeric(p.VATRate), db.DecimalToNumeric(p.MinStock), p.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
