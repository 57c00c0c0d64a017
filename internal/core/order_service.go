package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderService manages the order (pedido) lifecycle.
type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error)
	GetOrder(ctx context.Context, id int) (*Order, error)
	// ListOrders returns orders newest first, optionally filtered by status.
	ListOrders(ctx context.Context, status *OrderStatus) ([]Order, error)
	// DeliverOrder transitions pending → delivered.
	DeliverOrder(ctx context.Context, id int) (*Order, error)
	// CancelOrder transitions pending → cancelled and removes the order from sales.
	CancelOrder(ctx context.Context, id int) (*Order, error)
}

type orderService struct {
	pool       *pgxpool.Pool
	docService DocumentService
}

func NewOrderService(pool *pgxpool.Pool, docService DocumentService) OrderService {
	return &orderService{pool: pool, docService: docService}
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, &ValidationError{Err: ErrEmptyLines}
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

	number, err := s.docService.NextNumberTx(ctx, tx, DocTypeOrder)
	if err != nil {
		return nil, err
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, client_id, user_id, order_date,
		                    subtotal, discount_total, taxable_base, tax_amount, total, notes)
		VALUES ($1, $2, $3, COALESCE($4::date, CURRENT_DATE), $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, number, in.ClientID, in.UserID, in.OrderDate,
		totals.Subtotal, totals.DiscountTotal, totals.TaxableBase, totals.TaxAmount, totals.Total,
		strings.TrimSpace(in.Notes),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order %s: %w", number, err)
	}

	if err := insertLines(ctx, tx, "order_lines", "order_id", id, totals.Lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order %s: %w", number, err)
	}
	return s.GetOrder(ctx, id)
}

const orderSelect = `
	SELECT o.id, o.order_number, o.client_id, c.name, o.user_id, o.status, o.order_date,
	       o.subtotal, o.discount_total, o.taxable_base, o.tax_amount, o.total, o.notes,
	       o.created_at, o.delivered_at, o.cancelled_at
	FROM orders o
	JOIN clients c ON c.id = o.client_id`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.Number, &o.ClientID, &o.ClientName, &o.UserID, &status, &o.OrderDate,
		&o.Subtotal, &o.DiscountTotal, &o.TaxableBase, &o.TaxAmount, &o.Total, &o.Notes,
		&o.CreatedAt, &o.DeliveredAt, &o.CancelledAt); err != nil {
		return nil, err
	}
	o.Status = OrderStatus(status)
	return &o, nil
}

func (s *orderService) GetOrder(ctx context.Context, id int) (*Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	o.Lines, err = fetchLines(ctx, s.pool, "order_lines", "order_id", id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *orderService) ListOrders(ctx context.Context, status *OrderStatus) ([]Order, error) {
	var filter *string
	if status != nil {
		v := string(*status)
		filter = &v
	}
	rows, err := s.pool.Query(ctx, orderSelect+`
		WHERE $1::text IS NULL OR o.status = $1
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT 200
	`, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *orderService) DeliverOrder(ctx context.Context, id int) (*Order, error) {
	return s.transition(ctx, id, OrderStatusDelivered, "delivered_at")
}

func (s *orderService) CancelOrder(ctx context.Context, id int) (*Order, error) {
	return s.transition(ctx, id, OrderStatusCancelled, "cancelled_at")
}

// transition moves a pending order to target and stamps the given timestamp column.
func (s *orderService) transition(ctx context.Context, id int, target OrderStatus, stampColumn string) (*Order, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE orders SET status = $1, %s = NOW()
		WHERE id = $2 AND status = 'pending'
	`, stampColumn), string(target), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		current, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, invalid(ErrInvalidState, "el pedido %s está %s", current.Number, current.Status)
	}
	return s.GetOrder(ctx, id)
}
