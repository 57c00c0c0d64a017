package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// DashboardStats backs the landing page counters.
type DashboardStats struct {
	Clients          int             `json:"clients"`
	ActiveProducts   int             `json:"active_products"`
	Invoices         int             `json:"invoices"`
	OpenInvoices     int             `json:"open_invoices"`
	ReceivableAmount decimal.Decimal `json:"receivable_amount"`
	PendingOrders    int             `json:"pending_orders"`
	RecentInvoices   []Invoice       `json:"recent_invoices"`
}

// SourceTotal aggregates sales per origin: cash, credit or order.
type SourceTotal struct {
	Source   string          `json:"source"`
	Lines    int             `json:"lines"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

type DayTotal struct {
	Date     time.Time       `json:"date"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

type ProductTotal struct {
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

// SalesReport summarizes sales_lines for an inclusive date range.
type SalesReport struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	BySource  []SourceTotal   `json:"by_source"`
	ByDay     []DayTotal      `json:"by_day"`
	ByProduct []ProductTotal  `json:"by_product"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// ReportingService provides read-only summaries over invoices and orders.
type ReportingService interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
	// SalesReport covers from..to, both dates inclusive.
	SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	st := &DashboardStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM products WHERE is_active),
			(SELECT COUNT(*) FROM invoices WHERE status <> 'void'),
			(SELECT COUNT(*) FROM invoices WHERE status = 'open'),
			(SELECT COALESCE(SUM(total - paid_amount), 0) FROM invoices WHERE kind = 'credit' AND status = 'open'),
			(SELECT COUNT(*) FROM orders WHERE status = 'pending')
	`).Scan(&st.Clients, &st.ActiveProducts, &st.Invoices, &st.OpenInvoices, &st.ReceivableAmount, &st.PendingOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard counters: %w", err)
	}

	rows, err := s.pool.Query(ctx, invoiceSelect+` ORDER BY i.issued_at DESC, i.id DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent invoices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		st.RecentInvoices = append(st.RecentInvoices, *inv)
	}
	return st, rows.Err()
}

func (s *reportingService) SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	if to.Before(from) {
		return nil, &ValidationError{Err: fmt.Errorf("la fecha final es anterior a la inicial")}
	}
	rep := &SalesReport{From: from, To: to, Total: decimal.Zero}

	rows, err := s.pool.Query(ctx, `
		SELECT source, COUNT(*), COALESCE(SUM(quantity), 0), COALESCE(SUM(line_total), 0)
		FROM sales_lines
		WHERE sale_date BETWEEN $1::date AND $2::date
		GROUP BY source
		ORDER BY source
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by source: %w", err)
	}
	for rows.Next() {
		var t SourceTotal
		if err := rows.Scan(&t.Source, &t.Lines, &t.Quantity, &t.Amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan source total: %w", err)
		}
		rep.BySource = append(rep.BySource, t)
		rep.Quantity += t.Quantity
		rep.Total = rep.Total.Add(t.Amount)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT sale_date, SUM(quantity), SUM(line_total)
		FROM sales_lines
		WHERE sale_date BETWEEN $1::date AND $2::date
		GROUP BY sale_date
		ORDER BY sale_date
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by day: %w", err)
	}
	for rows.Next() {
		var t DayTotal
		if err := rows.Scan(&t.Date, &t.Quantity, &t.Amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan day total: %w", err)
		}
		rep.ByDay = append(rep.ByDay, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT product_id, product_name, SUM(quantity), SUM(line_total)
		FROM sales_lines
		WHERE sale_date BETWEEN $1::date AND $2::date
		GROUP BY product_id, product_name
		ORDER BY SUM(line_total) DESC, product_name
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by product: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t ProductTotal
		if err := rows.Scan(&t.ProductID, &t.ProductName, &t.Quantity, &t.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan product total: %w", err)
		}
		rep.ByProduct = append(rep.ByProduct, t)
	}
	return rep, rows.Err()
}
