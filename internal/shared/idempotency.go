package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyConflict indicates the key was already reserved, meaning the
// same document was posted before.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyStore reserves document keys so replays fail fast instead of
// reaching the database constraints mid-transaction.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// CheckAndInsert reserves key for module. A key that is already present
// returns ErrIdempotencyConflict.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" || module == "" {
		return errors.New("idempotency key and module required")
	}
	const q = `
INSERT INTO idempotency_keys (key, module, created_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO NOTHING`
	tag, err := s.pool.Exec(ctx, q, key, module)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Delete releases a reservation, used when the document transaction fails so
// the caller may retry with the same number.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if s == nil || key == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key)
	return err
}

// Sweep drops reservations older than retention and reports how many went.
func (s *IdempotencyStore) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
