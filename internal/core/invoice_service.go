package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InvoiceService creates and queries cash and credit invoices.
type InvoiceService interface {
	// CreateInvoice prices the lines, settles the creation-time payment, allocates
	// the invoice number and persists everything in one transaction.
	CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error)
	GetInvoice(ctx context.Context, id int) (*Invoice, error)
	ListInvoices(ctx context.Context, f InvoiceFilter) ([]Invoice, error)
	// VoidInvoice cancels an invoice and returns its stock. Credit invoices that
	// already received payments cannot be voided.
	VoidInvoice(ctx context.Context, id int) (*Invoice, error)
}

type invoiceService struct {
	pool     *pgxpool.Pool
	settings SettingsService
	now      func() time.Time
}

func NewInvoiceService(pool *pgxpool.Pool, settings SettingsService) InvoiceService {
	return &invoiceService{pool: pool, settings: settings, now: time.Now}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	if in.Kind != InvoiceKindCash && in.Kind != InvoiceKindCredit {
		return nil, invalid(ErrInvalidKind, "%q", in.Kind)
	}
	if len(in.Items) == 0 {
		return nil, &ValidationError{Err: ErrEmptyLines}
	}

	// Resolved before the transaction so a missing range setting never holds locks.
	rangeDesc, err := s.settings.AuthorizedRange(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := requireClient(ctx, tx, in.ClientID); err != nil {
		return nil, err
	}

	catalog, err := loadProducts(ctx, tx, in.Items)
	if err != nil {
		return nil, err
	}
	totals, err := ComputeTotals(in.Items, catalog)
	if err != nil {
		return nil, err
	}
	settlement, err := SettlePayment(in.Kind, totals.Total, in.Payment)
	if err != nil {
		return nil, err
	}

	number, err := s.allocateNumber(ctx, tx, rangeDesc)
	if err != nil {
		return nil, err
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (number, kind, client_id, user_id, status,
		                      subtotal, discount_total, taxable_base, tax_amount, total,
		                      paid_amount, change_amount, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, number, string(in.Kind), in.ClientID, in.UserID, string(settlement.Status),
		totals.Subtotal, totals.DiscountTotal, totals.TaxableBase, totals.TaxAmount, totals.Total,
		settlement.Paid, settlement.Change, strings.TrimSpace(in.Notes),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invoice %s: %w", number, err)
	}

	if err := insertLines(ctx, tx, "invoice_lines", "invoice_id", id, totals.Lines); err != nil {
		return nil, err
	}
	if err := adjustStock(ctx, tx, totals.Lines, -1); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice %s: %w", number, err)
	}

	return s.GetInvoice(ctx, id)
}

// allocateNumber returns the next invoice number. With an authorized range it
// increments the per-prefix counter row, which stays locked until the invoice
// transaction ends; the UNIQUE constraint on invoices.number is the backstop.
// Without a range it falls back to a timestamp number, see allocateFallback.
func (s *invoiceService) allocateNumber(ctx context.Context, tx pgx.Tx, rangeDesc string) (string, error) {
	r, ok := ParseAuthorizedRange(rangeDesc)
	if !ok {
		return s.allocateFallback(ctx, tx)
	}

	// Seeds the counter the first time a prefix is used.
	var last string
	err := tx.QueryRow(ctx, `
		SELECT number FROM invoices
		WHERE left(number, length($1)) = $1
		ORDER BY id DESC
		LIMIT 1
	`, r.Prefix).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to read last invoice number: %w", err)
	}

	var n int64
	err = tx.QueryRow(ctx, `
		INSERT INTO invoice_sequences (prefix, last_issued)
		VALUES ($1, $2)
		ON CONFLICT (prefix)
		DO UPDATE SET last_issued = GREATEST(invoice_sequences.last_issued + 1, $3), updated_at = NOW()
		RETURNING last_issued
	`, r.Prefix, r.NextValue(last), r.Start).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	if !r.Contains(n) {
		return "", invalid(ErrRangeExhausted, "siguiente número %s", r.Format(n))
	}
	return r.Format(n), nil
}

// fallbackLockKey serializes timestamp numbering across transactions.
const fallbackLockKey = 7462840

// allocateFallback returns F001-<timestamp>, stepping one second forward while
// the number is taken. The advisory lock is held until the invoice transaction
// ends, so two invoices in the same second never race for the same number.
func (s *invoiceService) allocateFallback(ctx context.Context, tx pgx.Tx) (string, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, fallbackLockKey); err != nil {
		return "", fmt.Errorf("failed to lock fallback numbering: %w", err)
	}
	at := s.now()
	for {
		number := FallbackInvoiceNumber(at)
		var taken bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE number = $1)`, number).Scan(&taken); err != nil {
			return "", fmt.Errorf("failed to check invoice number %s: %w", number, err)
		}
		if !taken {
			return number, nil
		}
		at = at.Add(time.Second)
	}
}

func (s *invoiceService) GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	return fetchInvoice(ctx, s.pool, id)
}

func (s *invoiceService) ListInvoices(ctx context.Context, f InvoiceFilter) ([]Invoice, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Kind != "" {
		add("i.kind = $%d", string(f.Kind))
	}
	if f.Status != "" {
		add("i.status = $%d", string(f.Status))
	}
	if f.ClientID > 0 {
		add("i.client_id = $%d", f.ClientID)
	}
	if f.From != nil {
		add("i.issued_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("i.issued_at < $%d", *f.To)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := invoiceSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY i.issued_at DESC, i.id DESC LIMIT %d", limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

func (s *invoiceService) VoidInvoice(ctx context.Context, id int) (*Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM invoices WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock invoice %d: %w", id, err)
	}
	if InvoiceStatus(status) == InvoiceStatusVoid {
		return nil, invalid(ErrInvalidState, "la factura ya está anulada")
	}

	var payments int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM credit_payments WHERE invoice_id = $1`, id).Scan(&payments); err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}
	if payments > 0 {
		return nil, invalid(ErrInvalidState, "la factura tiene %d abonos registrados", payments)
	}

	lines, err := fetchLines(ctx, tx, "invoice_lines", "invoice_id", id)
	if err != nil {
		return nil, err
	}
	priced := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		priced = append(priced, PricedLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	if err := adjustStock(ctx, tx, priced, +1); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE invoices SET status = 'void', voided_at = NOW() WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to void invoice %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return s.GetInvoice(ctx, id)
}

// ── shared persistence helpers ───────────────────────────────────────────────

const invoiceSelect = `
	SELECT i.id, i.number, i.kind, i.client_id, c.name, COALESCE(c.rtn_dni, ''), c.address,
	       i.user_id, i.status, i.issued_at, i.subtotal, i.discount_total, i.taxable_base,
	       i.tax_amount, i.total, i.paid_amount, i.change_amount, i.notes, i.voided_at
	FROM invoices i
	JOIN clients c ON c.id = i.client_id`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var kind, status string
	if err := row.Scan(&inv.ID, &inv.Number, &kind, &inv.ClientID, &inv.ClientName, &inv.ClientRTN,
		&inv.ClientAddress, &inv.UserID, &status, &inv.IssuedAt, &inv.Subtotal, &inv.DiscountTotal,
		&inv.TaxableBase, &inv.TaxAmount, &inv.Total, &inv.PaidAmount, &inv.ChangeAmount,
		&inv.Notes, &inv.VoidedAt); err != nil {
		return nil, err
	}
	inv.Kind = InvoiceKind(kind)
	inv.Status = InvoiceStatus(status)
	inv.Balance = decimal.Zero
	if inv.Kind == InvoiceKindCredit && inv.Status == InvoiceStatusOpen {
		inv.Balance = decimal.Max(decimal.Zero, inv.Total.Sub(inv.PaidAmount))
	}
	return &inv, nil
}

func fetchInvoice(ctx context.Context, q pgxQuerier, id int) (*Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, invoiceSelect+` WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invoice %d: %w", id, err)
	}
	inv.Lines, err = fetchLines(ctx, q, "invoice_lines", "invoice_id", id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// requireClient reports a validation error when the client does not exist.
func requireClient(ctx context.Context, q pgxQuerier, clientID int) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, clientID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check client %d: %w", clientID, err)
	}
	if !exists {
		return invalid(ErrNotFound, "cliente %d", clientID)
	}
	return nil
}

// insertLines writes priced lines to invoice_lines or order_lines. The table
// and key column are package constants, never user input.
func insertLines(ctx context.Context, tx pgx.Tx, table, keyColumn string, parentID int, lines []PricedLine) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, line_number, product_id, quantity, unit_price, unit_discount, line_net, tax_amount, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, table, keyColumn)

	batch := &pgx.Batch{}
	for i, l := range lines {
		batch.Queue(query, parentID, i+1, l.ProductID, l.Quantity, l.UnitPrice, l.UnitDiscount, l.Net, l.Tax, l.Total)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert %s: %w", table, err)
	}
	return nil
}

func fetchLines(ctx context.Context, q pgxQuerier, table, keyColumn string, parentID int) ([]DocumentLine, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(`
		SELECT l.line_number, l.product_id, p.code, p.name, l.quantity, l.unit_price,
		       l.unit_discount, l.line_net, l.tax_amount, l.line_total
		FROM %s l
		JOIN products p ON p.id = l.product_id
		WHERE l.%s = $1
		ORDER BY l.line_number
	`, table, keyColumn), parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var lines []DocumentLine
	for rows.Next() {
		var l DocumentLine
		if err := rows.Scan(&l.LineNumber, &l.ProductID, &l.ProductCode, &l.ProductName, &l.Quantity,
			&l.UnitPrice, &l.UnitDiscount, &l.Net, &l.Tax, &l.Total); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// adjustStock moves stock by sign × quantity for every line. Stock is
// informational and may go negative.
func adjustStock(ctx context.Context, tx pgx.Tx, lines []PricedLine, sign int) error {
	for _, l := range lines {
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $1 WHERE id = $2`, sign*l.Quantity, l.ProductID); err != nil {
			return fmt.Errorf("failed to update stock for product %d: %w", l.ProductID, err)
		}
	}
	return nil
}
