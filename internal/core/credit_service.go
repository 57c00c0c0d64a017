package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CreditService tracks collections (abonos) on credit invoices.
type CreditService interface {
	// RecordPayment applies an abono to an open credit invoice and closes it
	// once the balance reaches zero.
	RecordPayment(ctx context.Context, invoiceID int, amount decimal.Decimal, userID *int, note string) (*Invoice, error)
	ListPayments(ctx context.Context, invoiceID int) ([]CreditPayment, error)
	// ListReceivables returns open credit invoices, oldest first.
	ListReceivables(ctx context.Context) ([]Receivable, error)
}

type creditService struct {
	pool *pgxpool.Pool
}

func NewCreditService(pool *pgxpool.Pool) CreditService {
	return &creditService{pool: pool}
}

func (s *creditService) RecordPayment(ctx context.Context, invoiceID int, amount decimal.Decimal, userID *int, note string) (*Invoice, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{Err: errors.New("el abono debe ser mayor que cero")}
	}
	amount = amount.Round(2)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		kind, status string
		total, paid  decimal.Decimal
	)
	err = tx.QueryRow(ctx, `
		SELECT kind, status, total, paid_amount
		FROM invoices
		WHERE id = $1
		FOR UPDATE
	`, invoiceID).Scan(&kind, &status, &total, &paid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock invoice %d: %w", invoiceID, err)
	}
	if InvoiceKind(kind) != InvoiceKindCredit || InvoiceStatus(status) != InvoiceStatusOpen {
		return nil, invalid(ErrInvalidState, "solo se aceptan abonos en facturas de crédito pendientes")
	}

	balance := total.Sub(paid)
	if amount.GreaterThan(balance) {
		return nil, invalid(ErrPaymentExceeds, "saldo %s", balance.StringFixed(2))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO credit_payments (invoice_id, amount, user_id, note)
		VALUES ($1, $2, $3, $4)
	`, invoiceID, amount, userID, strings.TrimSpace(note))
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	newPaid := paid.Add(amount)
	newStatus := InvoiceStatusOpen
	if newPaid.GreaterThanOrEqual(total) {
		newStatus = InvoiceStatusPaid
	}
	_, err = tx.Exec(ctx, `UPDATE invoices SET paid_amount = $1, status = $2 WHERE id = $3`,
		newPaid, string(newStatus), invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice %d: %w", invoiceID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return fetchInvoice(ctx, s.pool, invoiceID)
}

func (s *creditService) ListPayments(ctx context.Context, invoiceID int) ([]CreditPayment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, invoice_id, amount, user_id, note, paid_at
		FROM credit_payments
		WHERE invoice_id = $1
		ORDER BY paid_at, id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []CreditPayment
	for rows.Next() {
		var p CreditPayment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.UserID, &p.Note, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *creditService) ListReceivables(ctx context.Context) ([]Receivable, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.number, i.client_id, c.name, i.issued_at, i.total, i.paid_amount,
		       i.total - i.paid_amount AS balance,
		       (CURRENT_DATE - i.issued_at::date) AS days_open
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.kind = 'credit' AND i.status = 'open'
		ORDER BY i.issued_at, i.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query receivables: %w", err)
	}
	defer rows.Close()

	var out []Receivable
	for rows.Next() {
		var r Receivable
		if err := rows.Scan(&r.InvoiceID, &r.Number, &r.ClientID, &r.ClientName, &r.IssuedAt,
			&r.Total, &r.PaidAmount, &r.Balance, &r.DaysOpen); err != nil {
			return nil, fmt.Errorf("failed to scan receivable: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
