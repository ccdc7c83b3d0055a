package partners

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository defines persistence operations for parties.
type Repository interface {
	Get(ctx context.Context, companyID, id int64) (*Party, error)
	List(ctx context.Context, req ListPartiesRequest) ([]Party, int, error)
	Create(ctx context.Context, p Party) (int64, error)
	Update(ctx context.Context, p Party) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const partyColumns = `id, company_id, name, role, tax_id, email, phone, address, is_active, created_at, updated_at`

func scanParty(row pgx.Row) (*Party, error) {
	var p Party
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.Role, &p.TaxID, &p.Email,
		&p.Phone, &p.Address, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (*Party, error) {
	q := fmt.Sprintf(`SELECT %s FROM parties WHERE company_id = $1 AND id = $2`, partyColumns)
	return scanParty(r.pool.QueryRow(ctx, q, companyID, id))
}

func (r *repository) List(ctx context.Context, req ListPartiesRequest) ([]Party, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := `company_id = $1`
	args := []interface{}{req.CompanyID}
	if req.Role != "" {
		args = append(args, req.Role)
		where += fmt.Sprintf(` AND (role = $%d OR role = 'BOTH')`, len(args))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		where += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}

	var total int
	countQ := `SELECT COUNT(*) FROM parties WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, req.Offset)
	listQ := fmt.Sprintf(`SELECT %s FROM parties WHERE %s ORDER BY name LIMIT $%d OFFSET $%d`,
		partyColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Party
	for rows.Next() {
		var p Party
		if err := rows.Scan(
			&p.ID, &p.CompanyID, &p.Name, &p.Role, &p.TaxID, &p.Email,
			&p.Phone, &p.Address, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Party) (int64, error) {
	const q = `
INSERT INTO parties (company_id, name, role, tax_id, email, phone, address, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, q,
		p.CompanyID, p.Name, p.Role, p.TaxID, p.Email, p.Phone, p.Address, p.IsActive,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, p Party) error {
	const q = `
UPDATE parties
SET name = $3, role = $4, tax_id = $5, email = $6, phone = $7, address = $8, is_active = $9, updated_at = NOW()
WHERE company_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, q,
		p.CompanyID, p.ID, p.Name, p.Role, p.TaxID, p.Email, p.Phone, p.Address, p.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
