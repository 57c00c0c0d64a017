package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ProductRow is one product aggregate in a top-products style result.
type ProductRow struct {
	ProductID   int             `json:"producto_id"`
	ProductName string          `json:"producto"`
	QtyTotal    int             `json:"qty_total"`
	Total       decimal.Decimal `json:"total"`
}

// InactiveClientRow is a client without recent purchases. LastPurchase is nil
// for clients that never bought anything.
type InactiveClientRow struct {
	ClientID     int        `json:"cliente_id"`
	ClientName   string     `json:"cliente"`
	LastPurchase *time.Time `json:"ultima_compra"`
}

// ClientPurchasesRow summarizes one client's purchases in a range.
type ClientPurchasesRow struct {
	ClientID     int             `json:"cliente_id"`
	ClientName   string          `json:"cliente"`
	Lines        int             `json:"lineas"`
	QtyTotal     int             `json:"qty_total"`
	Total        decimal.Decimal `json:"total"`
	LastPurchase *time.Time      `json:"ultima_compra"`
}

// DecreasedProductRow compares one product across two years.
type DecreasedProductRow struct {
	ProductID   int             `json:"producto_id"`
	ProductName string          `json:"producto"`
	QtyActual   int             `json:"qty_actual"`
	QtyPasado   int             `json:"qty_pasado"`
	TotalActual decimal.Decimal `json:"total_actual"`
	TotalPasado decimal.Decimal `json:"total_pasado"`
}

// ClientRef is the minimum needed to resolve a client mentioned by name.
type ClientRef struct {
	ID   int
	Name string
}

// AuditEntry is one row of the append-only tool execution log.
type AuditEntry struct {
	SessionID    string
	Username     string
	Question     string
	ToolName     ToolName
	Params       json.RawMessage
	ElapsedMS    int64
	RowsReturned int
}

// Store runs the read-only queries behind each tool. Date bounds are
// inclusive calendar days.
type Store interface {
	TopProducts(ctx context.Context, from, to time.Time, clientID *int, limit int) ([]ProductRow, error)
	InactiveClients(ctx context.Context, cutoff time.Time, limit int) ([]InactiveClientRow, error)
	ClientPurchases(ctx context.Context, clientID int, from, to time.Time) (*ClientPurchasesRow, error)
	DecreasedProducts(ctx context.Context, clientID, yearActual, yearPasado, limit int) ([]DecreasedProductRow, error)
	Clients(ctx context.Context) ([]ClientRef, error)
	RecordAudit(ctx context.Context, entry AuditEntry) error
}
