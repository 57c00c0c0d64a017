package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store backed by the sales_lines view.
func NewPGStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) TopProducts(ctx context.Context, from, to time.Time, clientID *int, limit int) ([]ProductRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, product_name, SUM(quantity)::int AS qty_total, SUM(line_total) AS total
		FROM sales_lines
		WHERE sale_date BETWEEN $1::date AND $2::date
		  AND ($3::int IS NULL OR client_id = $3)
		GROUP BY product_id, product_name
		ORDER BY qty_total DESC, total DESC, product_name
		LIMIT $4
	`, from, to, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	var out []ProductRow
	for rows.Next() {
		var r ProductRow
		if err := rows.Scan(&r.ProductID, &r.ProductName, &r.QtyTotal, &r.Total); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *pgStore) InactiveClients(ctx context.Context, cutoff time.Time, limit int) ([]InactiveClientRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.name, MAX(sl.sale_date) AS last_purchase
		FROM clients c
		LEFT JOIN sales_lines sl ON sl.client_id = c.id
		GROUP BY c.id, c.name
		HAVING MAX(sl.sale_date) IS NULL OR MAX(sl.sale_date) < $1::date
		ORDER BY last_purchase ASC NULLS FIRST, c.name
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive clients: %w", err)
	}
	defer rows.Close()

	var out []InactiveClientRow
	for rows.Next() {
		var r InactiveClientRow
		if err := rows.Scan(&r.ClientID, &r.ClientName, &r.LastPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan inactive client: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *pgStore) ClientPurchases(ctx context.Context, clientID int, from, to time.Time) (*ClientPurchasesRow, error) {
	r := &ClientPurchasesRow{}
	err := s.pool.QueryRow(ctx, `
		SELECT c.id, c.name,
		       COUNT(sl.product_id)::int,
		       COALESCE(SUM(sl.quantity), 0)::int,
		       COALESCE(SUM(sl.line_total), 0),
		       MAX(sl.sale_date)
		FROM clients c
		LEFT JOIN sales_lines sl
		       ON sl.client_id = c.id AND sl.sale_date BETWEEN $2::date AND $3::date
		WHERE c.id = $1
		GROUP BY c.id, c.name
	`, clientID, from, to).Scan(&r.ClientID, &r.ClientName, &r.Lines, &r.QtyTotal, &r.Total, &r.LastPurchase)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, toolErrorf("no existe un cliente con id %d", clientID)
		}
		return nil, fmt.Errorf("failed to query client purchases: %w", err)
	}
	return r, nil
}

func (s *pgStore) DecreasedProducts(ctx context.Context, clientID, yearActual, yearPasado, limit int) ([]DecreasedProductRow, error) {
	rows, err := s.pool.Query(ctx, `
		WITH per_year AS (
			SELECT product_id, product_name,
			       COALESCE(SUM(quantity)   FILTER (WHERE EXTRACT(YEAR FROM sale_date)::int = $2), 0)::int AS qty_actual,
			       COALESCE(SUM(quantity)   FILTER (WHERE EXTRACT(YEAR FROM sale_date)::int = $3), 0)::int AS qty_pasado,
			       COALESCE(SUM(line_total) FILTER (WHERE EXTRACT(YEAR FROM sale_date)::int = $2), 0) AS total_actual,
			       COALESCE(SUM(line_total) FILTER (WHERE EXTRACT(YEAR FROM sale_date)::int = $3), 0) AS total_pasado
			FROM sales_lines
			WHERE client_id = $1
			  AND EXTRACT(YEAR FROM sale_date)::int IN ($2, $3)
			GROUP BY product_id, product_name
		)
		SELECT product_id, product_name, qty_actual, qty_pasado, total_actual, total_pasado
		FROM per_year
		WHERE qty_actual < qty_pasado OR total_actual < total_pasado
		ORDER BY (qty_pasado - qty_actual) DESC, (total_pasado - total_actual) DESC, product_name
		LIMIT $4
	`, clientID, yearActual, yearPasado, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decreased products: %w", err)
	}
	defer rows.Close()

	var out []DecreasedProductRow
	for rows.Next() {
		var r DecreasedProductRow
		if err := rows.Scan(&r.ProductID, &r.ProductName, &r.QtyActual, &r.QtyPasado, &r.TotalActual, &r.TotalPasado); err != nil {
			return nil, fmt.Errorf("failed to scan decreased product: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *pgStore) Clients(ctx context.Context) ([]ClientRef, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var out []ClientRef
	for rows.Next() {
		var c ClientRef
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *pgStore) RecordAudit(ctx context.Context, e AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_audit (session_id, username, question, tool_name, params, elapsed_ms, rows_returned)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
	`, e.SessionID, e.Username, e.Question, string(e.ToolName), string(e.Params), e.ElapsedMS, e.RowsReturned)
	if err != nil {
		return fmt.Errorf("failed to record tool audit: %w", err)
	}
	return nil
}
