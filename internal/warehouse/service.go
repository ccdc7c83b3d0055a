package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Service derives the warehouse read model. The view is pure derivation
// over the stock ledger, cached briefly in Redis; concurrent cache misses
// for the same key collapse into one recomputation.
type Service struct {
	repo     Repository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
	group    singleflight.Group
}

func NewService(repo Repository, cache *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func cacheKey(f Filter, version int64) string {
	return fmt.Sprintf("warehouse:%d:%d:%s:%t", f.CompanyID, version, f.Category, f.ActiveOnly)
}

func versionKey(companyID int64) string {
	return fmt.Sprintf("warehouse:ver:%d", companyID)
}

// Invalidate bumps the company's view version. Document services call it
// after a posting commits so the next read rebuilds from the ledger instead
// of serving pre-commit stock; superseded entries age out via the TTL.
func (s *Service) Invalidate(ctx context.Context, companyID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Incr(ctx, versionKey(companyID)).Err()
}

func (s *Service) version(ctx context.Context, companyID int64) int64 {
	if s.cache == nil {
		return 0
	}
	v, err := s.cache.Get(ctx, versionKey(companyID)).Int64()
	if err != nil {
		// Missing or unreachable both mean version zero; an unreachable
		// Redis fails the cache read below too, so the build still runs.
		return 0
	}
	return v
}

// View assembles the read model for the filter, then applies the optional
// post-hoc status filter. Stats and the category rollup always cover the
// unfiltered set, matching what the interactive warehouse page shows.
func (s *Service) View(ctx context.Context, f Filter, status Status) (*View, error) {
	view, err := s.load(ctx, f)
	if err != nil {
		return nil, err
	}
	if status != "" && status != "ALL" {
		filtered := make([]Row, 0, len(view.Items))
		for _, row := range view.Items {
			if row.Status == status {
				filtered = append(filtered, row)
			}
		}
		view.Items = filtered
	}
	return view, nil
}

func (s *Service) load(ctx context.Context, f Filter) (*View, error) {
	key := cacheKey(f, s.version(ctx, f.CompanyID))

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached View
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		view, err := s.build(ctx, f)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if data, err := json.Marshal(view); err == nil {
				if err := s.cache.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
					s.logger.Warn("warehouse: cache write failed", "error", err, "key", key)
				}
			}
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}

	// Copy so post-hoc filtering never mutates the shared cached value.
	view := *(v.(*View))
	return &view, nil
}

func (s *Service) build(ctx context.Context, f Filter) (*View, error) {
	rows, err := s.repo.ListStocked(ctx, f)
	if err != nil {
		return nil, err
	}

	view := &View{
		Items:      make([]Row, 0, len(rows)),
		ByCategory: map[string]CategorySummary{},
		Stats:      Stats{TotalStockValue: decimal.Zero},
	}
	for _, row := range rows {
		row.Status = Classify(row.CurrentStock, row.MinStock)
		row.StockValue = row.CurrentStock.Mul(row.CostPrice).Round(2)
		view.Items = append(view.Items, row)

		view.Stats.TotalProducts++
		switch row.Status {
		case StatusOK:
			view.Stats.InStock++
		case StatusLow:
			view.Stats.LowStock++
		case StatusOutOfStock:
			view.Stats.OutOfStock++
		case StatusOverstocked:
			view.Stats.Overstocked++
		}
		view.Stats.TotalStockValue = view.Stats.TotalStockValue.Add(row.StockValue)

		category := row.Category
		if category == "" {
			category = "Uncategorized"
		}
		summary := view.ByCategory[category]
		summary.Count++
		summary.TotalStock = summary.TotalStock.Add(row.CurrentStock)
		summary.StockValue = summary.StockValue.Add(row.StockValue)
		view.ByCategory[category] = summary
	}
	return view, nil
}
