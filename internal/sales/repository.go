package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/stock"
)

// ErrDuplicateNumber signals the document number is already posted for the
// company.
var ErrDuplicateNumber = errors.New("sales: document number already exists")

// Repository defines persistence for sale documents.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, companyID, id int64) (*Sale, error)
	List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error)
}

// TxRepository is the transactional slice used while posting a document.
type TxRepository interface {
	InsertHeader(ctx context.Context, doc *Sale) (int64, error)
	InsertLines(ctx context.Context, saleID int64, lines []Line) error
	// IssueStock performs the conditional decrement. It returns
	// *stock.InsufficientError when the product does not hold enough,
	// without aborting the transaction, so callers can keep probing the
	// remaining lines.
	IssueStock(ctx context.Context, companyID, productID int64, qty decimal.Decimal, saleID int64) (decimal.Decimal, error)
}

type repository struct {
	pool   *pgxpool.Pool
	ledger *stock.Ledger
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool, ledger: stock.NewLedger()}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, ledger: r.ledger})
	})
}

type txRepository struct {
	tx     pgx.Tx
	ledger *stock.Ledger
}

func (t *txRepository) InsertHeader(ctx context.Context, doc *Sale) (int64, error) {
	const q = `
INSERT INTO sales (
	company_id, document_number, document_date, delivery_date, due_date,
	client_id, currency, subtotal, discount_amount, vat_amount, total_amount,
	payment_status, delivery_status, document_status, notes, created_by, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, q,
		doc.CompanyID, doc.Number, doc.Date, doc.DeliveryDate, doc.DueDate,
		doc.ClientID, doc.Currency,
		db.DecimalToNumeric(doc.Subtotal), db.DecimalToNumeric(doc.DiscountAmount),
		db.DecimalToNumeric(doc.VATAmount), db.DecimalToNumeric(doc.Total),
		doc.PaymentStatus, doc.DeliveryStatus, doc.DocumentStatus, doc.Notes, doc.CreatedBy,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateNumber
	}
	return id, err
}

func (t *txRepository) InsertLines(ctx context.Context, saleID int64, lines []Line) error {
	const q = `
INSERT INTO sale_lines (
	sale_id, line_number, product_id, quantity, unit_price_base,
	discount_percent, discount_amount, vat_rate, vat_amount, line_total, description
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, line := range lines {
		_, err := t.tx.Exec(ctx, q,
			saleID, line.LineNumber, line.ProductID,
			db.DecimalToNumeric(line.Quantity), db.DecimalToNumeric(line.UnitPriceBase),
			db.DecimalToNumeric(line.DiscountPercent), db.DecimalToNumeric(line.DiscountAmount),
			db.DecimalToNumeric(line.VATRate), db.DecimalToNumeric(line.VATAmount),
			db.DecimalToNumeric(line.LineTotal), line.Description,
		)
		if err != nil {
			return fmt.Errorf("insert sale line %d: %w", line.LineNumber, err)
		}
	}
	return nil
}

func (t *txRepository) IssueStock(ctx context.Context, companyID, productID int64, qty decimal.Decimal, saleID int64) (decimal.Decimal, error) {
	return t.ledger.Issue(ctx, t.tx, companyID, productID, qty, stock.RefSale, saleID)
}

const headerColumns = `
	s.id, s.company_id, s.document_number, s.document_date, s.delivery_date, s.due_date,
	s.client_id, pt.name, s.currency, s.subtotal, s.discount_amount, s.vat_amount, s.total_amount,
	s.payment_status, s.delivery_status, s.document_status,
	COALESCE(s.notes, ''), s.created_by, s.created_at`

func scanHeader(row pgx.Row) (*Sale, error) {
	var doc Sale
	var subtotal, discount, vat, total pgtype.Numeric
	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.Number, &doc.Date, &doc.DeliveryDate, &doc.DueDate,
		&doc.ClientID, &doc.ClientName, &doc.Currency, &subtotal, &discount, &vat, &total,
		&doc.PaymentStatus, &doc.DeliveryStatus, &doc.DocumentStatus,
		&doc.Notes, &doc.CreatedBy, &doc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Subtotal = db.NumericToDecimal(subtotal)
	doc.DiscountAmount = db.NumericToDecimal(discount)
	doc.VATAmount = db.NumericToDecimal(vat)
	doc.Total = db.NumericToDecimal(total)
	return &doc, nil
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (*Sale, error) {
	q := fmt.Sprintf(`
SELECT %s
FROM sales s
JOIN parties pt ON pt.id = s.client_id
WHERE s.company_id = $1 AND s.id = $2`, headerColumns)
	doc, err := scanHeader(r.pool.QueryRow(ctx, q, companyID, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*Sale{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *repository) List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	where := `s.company_id = $1`
	args := []interface{}{req.CompanyID}
	if req.DocumentStatus != "" {
		args = append(args, req.DocumentStatus)
		where += fmt.Sprintf(` AND s.document_status = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales s WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, req.Offset)
	q := fmt.Sprintf(`
SELECT %s
FROM sales s
JOIN parties pt ON pt.id = s.client_id
WHERE %s
ORDER BY s.document_date DESC, s.id DESC
LIMIT $%d OFFSET $%d`, headerColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []*Sale
	for rows.Next() {
		doc, err := scanHeader(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadLines(ctx, docs); err != nil {
		return nil, 0, err
	}

	out := make([]Sale, len(docs))
	for i, doc := range docs {
		out[i] = *doc
	}
	return out, total, nil
}

func (r *repository) loadLines(ctx context.Context, docs []*Sale) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[int64]*Sale, len(docs))
	ids := make([]int64, 0, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
		ids = append(ids, doc.ID)
	}

	const q = `
SELECT l.id, l.sale_id, l.line_number, l.product_id, pr.name,
	l.quantity, l.unit_price_base, l.discount_percent, l.discount_amount,
	l.vat_rate, l.vat_amount, l.line_total, COALESCE(l.description, '')
FROM sale_lines l
JOIN products pr ON pr.id = l.product_id
WHERE l.sale_id = ANY($1)
ORDER BY l.sale_id, l.line_number`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var line Line
		var qty, price, discPct, discAmt, rate, vat, lineTotal pgtype.Numeric
		if err := rows.Scan(
			&line.ID, &line.SaleID, &line.LineNumber, &line.ProductID, &line.ProductName,
			&qty, &price, &discPct, &discAmt, &rate, &vat, &lineTotal, &line.Description,
		); err != nil {
			return err
		}
		line.Quantity = db.NumericToDecimal(qty)
		line.UnitPriceBase = db.NumericToDecimal(price)
		line.DiscountPercent = db.NumericToDecimal(discPct)
		line.DiscountAmount = db.NumericToDecimal(discAmt)
		line.VATRate = db.NumericToDecimal(rate)
		line.VATAmount = db.NumericToDecimal(vat)
		line.LineTotal = db.NumericToDecimal(lineTotal)
		if doc, ok := byID[line.SaleID]; ok {
			doc.Lines = append(doc.Lines, line)
		}
	}
	return rows.Err()
}
