package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus progresses pending → delivered, or pending → cancelled.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a customer order (pedido). Lines of non-cancelled orders count as sales.
type Order struct {
	ID            int             `json:"id"`
	Number        string          `json:"number"`
	ClientID      int             `json:"client_id"`
	ClientName    string          `json:"client_name"`
	UserID        *int            `json:"user_id,omitempty"`
	Status        OrderStatus     `json:"status"`
	OrderDate     time.Time       `json:"order_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxableBase   decimal.Decimal `json:"taxable_base"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	DeliveredAt   *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
	Lines         []DocumentLine  `json:"lines,omitempty"`
}

// CreateOrderInput is used when creating a new order. A nil OrderDate means today.
type CreateOrderInput struct {
	ClientID  int        `json:"client_id"`
	UserID    *int       `json:"user_id,omitempty"`
	OrderDate *time.Time `json:"order_date,omitempty"`
	Items     []LineItem `json:"items"`
	Notes     string     `json:"notes"`
}
