package app

import (
	"github.com/shopspring/decimal"
)

// LineInput is a single product line for invoices and orders.
type LineInput struct {
	ProductID    int             `json:"product_id"`
	Quantity     int             `json:"quantity"`
	UnitDiscount decimal.Decimal `json:"unit_discount"`
}

// CreateInvoiceRequest is the input for a new invoice. Kind is "cash" or "credit".
type CreateInvoiceRequest struct {
	Kind     string          `json:"kind"`
	ClientID int             `json:"client_id"`
	UserID   *int            `json:"-"`
	Lines    []LineInput     `json:"lines"`
	Payment  decimal.Decimal `json:"payment"`
	Notes    string          `json:"notes"`
}

// ListInvoicesRequest filters invoices. Dates are YYYY-MM-DD; empty means unbounded.
type ListInvoicesRequest struct {
	Kind     string
	Status   string
	ClientID int
	FromDate string
	ToDate   string
	Limit    int
}

// CreditPaymentRequest records an abono against a credit invoice.
type CreditPaymentRequest struct {
	InvoiceID int             `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	UserID    *int            `json:"-"`
	Note      string          `json:"note"`
}

// CreateOrderRequest is the input for a new order. OrderDate is optional (YYYY-MM-DD).
type CreateOrderRequest struct {
	ClientID  int         `json:"client_id"`
	UserID    *int        `json:"-"`
	OrderDate string      `json:"order_date"`
	Lines     []LineInput `json:"lines"`
	Notes     string      `json:"notes"`
}

type CreateClientRequest struct {
	Name    string `json:"name"`
	RTNDNI  string `json:"rtn_dni"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type CreateProductRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	CategoryID    *int            `json:"category_id"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	TaxApplicable bool            `json:"tax_applicable"`
	Stock         int             `json:"stock"`
}

// ChatRequest is one chat turn. SessionID is the opaque token kept by the client.
type ChatRequest struct {
	SessionID string
	Username  string
	Message   string
}
