package purchases

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
var ErrDuplicateNumber = errors.New("purchases: document number already exists")

// Repository defines persistence for purchase documents.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, companyID, id int64) (*Purchase, error)
	List(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error)
}

// TxRepository is the transactional slice used while posting a document.
// Everything done through it commits or rolls back as one unit.
type TxRepository interface {
	InsertHeader(ctx context.Context, doc *Purchase) (int64, error)
	InsertLines(ctx context.Context, purchaseID int64, lines []Line) error
	ReceiveStock(ctx context.Context, companyID, productID int64, qty decimal.Decimal, purchaseID int64) (decimal.Decimal, error)
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

func (t *txRepository) InsertHeader(ctx context.Context, doc *Purchase) (int64, error) {
	const q = `
INSERT INTO purchases (
	company_id, document_number, document_date, supplier_id, currency,
	subtotal, vat_amount, total_amount,
	payment_status, delivery_status, document_status, notes, created_by, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, q,
		doc.CompanyID, doc.Number, doc.Date, doc.SupplierID, doc.Currency,
		db.DecimalToNumeric(doc.Subtotal), db.DecimalToNumeric(doc.VATAmount), db.DecimalToNumeric(doc.Total),
		doc.PaymentStatus, doc.DeliveryStatus, doc.DocumentStatus, doc.Notes, doc.CreatedBy,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateNumber
	}
	return id, err
}

func (t *txRepository) InsertLines(ctx context.Context, purchaseID int64, lines []Line) error {
	const q = `
INSERT INTO purchase_lines (
	purchase_id, line_number, product_id, quantity, unit_price,
	vat_rate, vat_amount, line_total, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, line := range lines {
		_, err := t.tx.Exec(ctx, q,
			purchaseID, line.LineNumber, line.ProductID,
			db.DecimalToNumeric(line.Quantity), db.DecimalToNumeric(line.UnitPrice),
			db.DecimalToNumeric(line.VATRate), db.DecimalToNumeric(line.VATAmount),
			db.DecimalToNumeric(line.LineTotal), line.Notes,
		)
		if err != nil {
			return fmt.Errorf("insert purchase line %d: %w", line.LineNumber, err)
		}
	}
	return nil
}

func (t *txRepository) ReceiveStock(ctx context.Context, companyID, productID int64, qty decimal.Decimal, purchaseID int64) (decimal.Decimal, error) {
	return t.ledger.Receive(ctx, t.tx, companyID, productID, qty, stock.RefPurchase, purchaseID)
}

const headerColumns = `
	p.id, p.company_id, p.document_number, p.document_date, p.supplier_id,
	pt.name, p.currency, p.subtotal, p.vat_amount, p.total_amount,
	p.payment_status, p.delivery_status, p.document_status,
	COALESCE(p.notes, ''), p.created_by, p.created_at`

func scanHeader(row pgx.Row) (*Purchase, error) {
	var doc Purchase
	var subtotal, vat, total pgtype.Numeric
	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.Number, &doc.Date, &doc.SupplierID,
		&doc.SupplierName, &doc.Currency, &subtotal, &vat, &total,
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
	doc.VATAmount = db.NumericToDecimal(vat)
	doc.Total = db.NumericToDecimal(total)
	return &doc, nil
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (*Purchase, error) {
	q := fmt.Sprintf(`
SELECT %s
FROM purchases p
JOIN parties pt ON pt.id = p.supplier_id
WHERE p.company_id = $1 AND p.id = $2`, headerColumns)
	doc, err := scanHeader(r.pool.QueryRow(ctx, q, companyID, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*Purchase{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *repository) List(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	where := `p.company_id = $1`
	args := []interface{}{req.CompanyID}
	if req.DocumentStatus != "" {
		args = append(args, req.DocumentStatus)
		where += fmt.Sprintf(` AND p.document_status = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases p WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, req.Offset)
	q := fmt.Sprintf(`
SELECT %s
FROM purchases p
JOIN parties pt ON pt.id = p.supplier_id
WHERE %s
ORDER BY p.document_date DESC, p.id DESC
LIMIT $%d OFFSET $%d`, headerColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []*Purchase
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

	out := make([]Purchase, len(docs))
	for i, doc := range docs {
		out[i] = *doc
	}
	return out, total, nil
}

func (r *repository) loadLines(ctx context.Context, docs []*Purchase) error {
	if len(docs) == 0 {
		return nil
	}
	byID := make(map[int64]*Purchase, len(docs))
	ids := make([]int64, 0, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
		ids = append(ids, doc.ID)
	}

	const q = `
SELECT l.id, l.purchase_id, l.line_number, l.product_id, pr.name,
	l.quantity, l.unit_price, l.vat_rate, l.vat_amount, l.line_total,
	COALESCE(l.notes, '')
FROM purchase_lines l
JOIN products pr ON pr.id = l.product_id
WHERE l.purchase_id = ANY($1)
ORDER BY l.purchase_id, l.line_number`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var line Line
		var qty, price, rate, vat, lineTotal pgtype.Numeric
		if err := rows.Scan(
			&line.ID, &line.PurchaseID, &line.LineNumber, &line.ProductID, &line.ProductName,
			&qty, &price, &rate, &vat, &lineTotal, &line.Notes,
		); err != nil {
			return err
		}
		line.Quantity = db.NumericToDecimal(qty)
		line.UnitPrice = db.NumericToDecimal(price)
		line.VATRate = db.NumericToDecimal(rate)
		line.VATAmount = db.NumericToDecimal(vat)
		line.LineTotal = db.NumericToDecimal(lineTotal)
		if doc, ok := byID[line.PurchaseID]; ok {
			doc.Lines = append(doc.Lines, line)
		}
	}
	return rows.Err()
}
