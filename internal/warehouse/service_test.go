package warehouse

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		name     string
		current  int64
		min      int64
		expected Status
	}{
		{"zero stock is out", 0, 5, StatusOutOfStock},
		{"zero stock with zero min is out", 0, 0, StatusOutOfStock},
		{"below min is low", 3, 5, StatusLow},
		{"one below min is low", 4, 5, StatusLow},
		{"at min is ok", 5, 5, StatusOK},
		{"at triple min is ok", 15, 5, StatusOK},
		{"above triple min is overstocked", 16, 5, StatusOverstocked},
		{"zero min never low", 1, 0, StatusOK},
		{"zero min never overstocked", 1000, 0, StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(decimal.NewFromInt(tc.current), decimal.NewFromInt(tc.min))
			require.Equal(t, tc.expected, got)
		})
	}
}

type fakeRepo struct {
	rows  []Row
	calls int
}

func (f *fakeRepo) ListStocked(_ context.Context, filter Filter) ([]Row, error) {
	f.calls++
	var out []Row
	for _, row := range f.rows {
		if filter.Category != "" && row.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !row.IsActive {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func seedRows() []Row {
	return []Row{
		{ID: 1, Code: "A", Name: "Widget", Category: "Hardware", CurrentStock: decimal.NewFromInt(10), MinStock: decimal.NewFromInt(5), CostPrice: decimal.NewFromInt(2), IsActive: true},
		{ID: 2, Code: "B", Name: "Gadget", Category: "Hardware", CurrentStock: decimal.Zero, MinStock: decimal.NewFromInt(5), CostPrice: decimal.NewFromInt(3), IsActive: true},
		{ID: 3, Code: "C", Name: "Gizmo", Category: "Electronics", CurrentStock: decimal.NewFromInt(2), MinStock: decimal.NewFromInt(5), CostPrice: decimal.NewFromInt(4), IsActive: true},
		{ID: 4, Code: "D", Name: "Doohickey", Category: "", CurrentStock: decimal.NewFromInt(100), MinStock: decimal.NewFromInt(5), CostPrice: decimal.NewFromInt(1), IsActive: true},
	}
}

func newService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(repo, client, 30*time.Second, slog.Default())
}

func TestViewStatsAndRollup(t *testing.T) {
	repo := &fakeRepo{rows: seedRows()}
	svc := newService(t, repo)

	view, err := svc.View(context.Background(), Filter{CompanyID: 1, ActiveOnly: true}, "")
	require.NoError(t, err)

	require.Equal(t, 4, view.Stats.TotalProducts)
	require.Equal(t, 1, view.Stats.InStock)
	require.Equal(t, 1, view.Stats.LowStock)
	require.Equal(t, 1, view.Stats.OutOfStock)
	require.Equal(t, 1, view.Stats.Overstocked)
	// 10*2 + 0*3 + 2*4 + 100*1 = 128
	require.True(t, view.Stats.TotalStockValue.Equal(decimal.NewFromInt(128)))

	hardware := view.ByCategory["Hardware"]
	require.Equal(t, 2, hardware.Count)
	require.True(t, hardware.TotalStock.Equal(decimal.NewFromInt(10)))
	require.True(t, hardware.StockValue.Equal(decimal.NewFromInt(20)))

	uncategorized := view.ByCategory["Uncategorized"]
	require.Equal(t, 1, uncategorized.Count)
}

func TestViewStatusFilterKeepsFullStats(t *testing.T) {
	repo := &fakeRepo{rows: seedRows()}
	svc := newService(t, repo)

	view, err := svc.View(context.Background(), Filter{CompanyID: 1, ActiveOnly: true}, StatusLow)
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	require.Equal(t, "Gizmo", view.Items[0].Name)
	// Stats still describe the whole set.
	require.Equal(t, 4, view.Stats.TotalProducts)
}

func TestViewCachesPerFilter(t *testing.T) {
	repo := &fakeRepo{rows: seedRows()}
	svc := newService(t, repo)

	_, err := svc.View(context.Background(), Filter{CompanyID: 1, ActiveOnly: true}, "")
	require.NoError(t, err)
	_, err = svc.View(context.Background(), Filter{CompanyID: 1, ActiveOnly: true}, StatusLow)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls, "second request must hit the cache")

	_, err = svc.View(context.Background(), Filter{CompanyID: 1, Category: "Hardware", ActiveOnly: true}, "")
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls, "different filter is a different cache key")
}

func TestViewObservesLedgerAfterInvalidate(t *testing.T) {
	repo := &fakeRepo{rows: []Row{{
		ID: 1, Code: "A", Name: "Widget", Category: "Hardware",
		CurrentStock: decimal.NewFromInt(10), MinStock: decimal.NewFromInt(5),
		CostPrice: decimal.NewFromInt(2), IsActive: true,
	}}}
	svc := newService(t, repo)
	filter := Filter{CompanyID: 1, ActiveOnly: true}

	view, err := svc.View(context.Background(), filter, "")
	require.NoError(t, err)
	require.True(t, view.Items[0].CurrentStock.Equal(decimal.NewFromInt(10)))
	require.Equal(t, 1, repo.calls)

	// A sale drains the product and commits.
	repo.rows[0].CurrentStock = decimal.Zero
	require.NoError(t, svc.Invalidate(context.Background(), 1))

	view, err = svc.View(context.Background(), filter, "")
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls, "invalidation must force a rebuild")
	require.True(t, view.Items[0].CurrentStock.IsZero())
	require.Equal(t, StatusOutOfStock, view.Items[0].Status)
	require.Equal(t, 1, view.Stats.OutOfStock)
}

func TestInvalidateScopedToCompany(t *testing.T) {
	repo := &fakeRepo{rows: seedRows()}
	svc := newService(t, repo)

	_, err := svc.View(context.Background(), Filter{CompanyID: 1, ActiveOnly: true}, "")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background(), 2))

	_, err = svc.View(context.Background(), Filter{CompanyID: 1, ActiveOnly: true}, "")
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls, "another company's posting must not evict this view")
}

func TestViewStockValueRounding(t *testing.T) {
	repo := &fakeRepo{rows: []Row{{
		ID: 1, Name: "Widget", CurrentStock: decimal.RequireFromString("3.333"),
		MinStock: decimal.Zero, CostPrice: decimal.RequireFromString("1.115"), IsActive: true,
	}}}
	svc := newService(t, repo)

	view, err := svc.View(context.Background(), Filter{CompanyID: 1, ActiveOnly: true}, "")
	require.NoError(t, err)
	require.True(t, view.Items[0].StockValue.Equal(decimal.RequireFromString("3.72")))
}
