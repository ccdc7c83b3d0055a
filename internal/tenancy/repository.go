package tenancy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository answers membership questions against company_members.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HasAccess reports whether userID belongs to companyID.
func (r *Repository) HasAccess(ctx context.Context, userID, companyID int64) (bool, error) {
	const q = `SELECT 1 FROM company_members WHERE user_id = $1 AND company_id = $2`
	var one int
	err := r.pool.QueryRow(ctx, q, userID, companyID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListCompanies returns the companies the user is a member of, with the role
// held in each.
func (r *Repository) ListCompanies(ctx context.Context, userID int64) ([]CompanyView, error) {
	const q = `
SELECT c.id, c.name, c.created_at, m.role
FROM companies c
JOIN company_members m ON m.company_id = c.id
WHERE m.user_id = $1
ORDER BY c.name`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CompanyView
	for rows.Next() {
		var c CompanyView
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.Role); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
