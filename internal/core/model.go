package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Client is a customer master record.
type Client struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	RTNDNI    *string   `json:"rtn_dni,omitempty"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Category groups products (e.g. veterinario, shampoo).
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Product is a sellable item. TaxApplicable marks it as subject to ISV.
type Product struct {
	ID            int             `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	CategoryID    *int            `json:"category_id,omitempty"`
	CategoryName  string          `json:"category_name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	TaxApplicable bool            `json:"tax_applicable"`
	Stock         int             `json:"stock"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

var (
	ErrNotFound            = errors.New("registro no encontrado")
	ErrInvalidQuantity     = errors.New("la cantidad debe ser mayor que cero")
	ErrProductNotFound     = errors.New("producto no encontrado")
	ErrNegativeDiscount    = errors.New("el descuento no puede ser negativo")
	ErrInsufficientPayment = errors.New("pago insuficiente")
	ErrNegativePayment     = errors.New("el pago no puede ser negativo")
	ErrEmptyLines          = errors.New("debe incluir al menos un producto")
	ErrInvalidKind         = errors.New("tipo de factura inválido")
	ErrRangeExhausted      = errors.New("rango de facturación autorizado agotado")
	ErrInvalidState        = errors.New("operación no permitida en el estado actual")
	ErrPaymentExceeds      = errors.New("el abono excede el saldo pendiente")
	ErrDuplicate           = errors.New("registro duplicado")
)

// ValidationError is a caller mistake that is reported verbatim and never retried.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, format string, args ...any) error {
	return &ValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// isUniqueViolation matches PostgreSQL error 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
