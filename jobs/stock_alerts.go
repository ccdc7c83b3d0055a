package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/warehouse"
)

const (
	// TaskStockAlertScan triggers the periodic low-stock sweep.
	TaskStockAlertScan = "stock:alert_scan"
)

// StockAlertPayload carries scheduling metadata.
type StockAlertPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewStockAlertTask constructs the scan task the scheduler enqueues.
func NewStockAlertTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(StockAlertPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockAlertScan, body, asynq.Queue(QueueDefault)), nil
}

// StockAlertScanner walks every company's ledger and emits one alert email
// per company that has LOW or OUT_OF_STOCK products.
type StockAlertScanner struct {
	pool   *pgxpool.Pool
	client *Client
	logger *slog.Logger
	to     string
}

func NewStockAlertScanner(pool *pgxpool.Pool, client *Client, logger *slog.Logger, to string) *StockAlertScanner {
	return &StockAlertScanner{pool: pool, client: client, logger: logger, to: to}
}

type alertRow struct {
	companyID   int64
	companyName string
	productName string
	status      warehouse.Status
	current     string
	min         string
}

// Handle processes TaskStockAlertScan tasks.
func (s *StockAlertScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if s.to == "" {
		s.logger.Info("stock alerts: no recipient configured, skipping scan")
		return nil
	}

	rows, err := s.scan(ctx)
	if err != nil {
		return fmt.Errorf("stock alerts: scan: %w", err)
	}
	if len(rows) == 0 {
		s.logger.Info("stock alerts: all companies healthy")
		return nil
	}

	byCompany := map[int64][]alertRow{}
	for _, row := range rows {
		byCompany[row.companyID] = append(byCompany[row.companyID], row)
	}
	for _, alerts := range byCompany {
		var b strings.Builder
		fmt.Fprintf(&b, "Stock alerts for %s:\n\n", alerts[0].companyName)
		for _, a := range alerts {
			fmt.Fprintf(&b, "- %s: %s (on hand %s, min %s)\n", a.productName, a.status, a.current, a.min)
		}
		if _, err := s.client.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      s.to,
			Subject: fmt.Sprintf("[meridian] %d stock alerts for %s", len(alerts), alerts[0].companyName),
			Body:    b.String(),
		}); err != nil {
			s.logger.Error("stock alerts: enqueue email", "error", err, "company", alerts[0].companyName)
		}
	}
	s.logger.Info("stock alerts: scan complete", "companies", len(byCompany), "alerts", len(rows))
	return nil
}

func (s *StockAlertScanner) scan(ctx context.Context) ([]alertRow, error) {
	const q = `
SELECT c.id, c.name, p.name, p.current_stock, p.min_stock
FROM products p
JOIN companies c ON c.id = p.company_id
WHERE p.is_service = FALSE AND p.is_active = TRUE
	AND (p.current_stock = 0 OR p.current_stock < p.min_stock)
ORDER BY c.id, p.name`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alertRow
	for rows.Next() {
		var row alertRow
		var current, min pgtype.Numeric
		if err := rows.Scan(&row.companyID, &row.companyName, &row.productName, &current, &min); err != nil {
			return nil, err
		}
		cur := db.NumericToDecimal(current)
		mn := db.NumericToDecimal(min)
		row.status = warehouse.Classify(cur, mn)
		row.current = cur.String()
		row.min = mn.String()
		out = append(out, row)
	}
	return out, rows.Err()
}
