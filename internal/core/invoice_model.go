package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceKind distinguishes cash sales (paid in full) from credit sales.
type InvoiceKind string

const (
	InvoiceKindCash   InvoiceKind = "cash"
	InvoiceKindCredit InvoiceKind = "credit"
)

// InvoiceStatus:
//
//	cash:   paid → void
//	credit: open → paid (through payments), open → void
type InvoiceStatus string

const (
	InvoiceStatusPaid InvoiceStatus = "paid"
	InvoiceStatusOpen InvoiceStatus = "open"
	InvoiceStatusVoid InvoiceStatus = "void"
)

// Invoice is a persisted invoice header with its lines.
type Invoice struct {
	ID            int             `json:"id"`
	Number        string          `json:"number"`
	Kind          InvoiceKind     `json:"kind"`
	ClientID      int             `json:"client_id"`
	ClientName    string          `json:"client_name"`
	ClientRTN     string          `json:"client_rtn"`
	ClientAddress string          `json:"client_address"`
	UserID        *int            `json:"user_id,omitempty"`
	Status        InvoiceStatus   `json:"status"`
	IssuedAt      time.Time       `json:"issued_at"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxableBase   decimal.Decimal `json:"taxable_base"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	ChangeAmount  decimal.Decimal `json:"change_amount"`
	Balance       decimal.Decimal `json:"balance"`
	Notes         string          `json:"notes"`
	VoidedAt      *time.Time      `json:"voided_at,omitempty"`
	Lines         []DocumentLine  `json:"lines,omitempty"`
}

// DocumentLine is one persisted invoice or order line. Total = Net + Tax.
type DocumentLine struct {
	LineNumber   int             `json:"line_number"`
	ProductID    int             `json:"product_id"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitDiscount decimal.Decimal `json:"unit_discount"`
	Net          decimal.Decimal `json:"net"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// CreateInvoiceInput is the validated request for a new invoice.
// Payment is the amount received at the counter.
type CreateInvoiceInput struct {
	Kind     InvoiceKind     `json:"kind"`
	ClientID int             `json:"client_id"`
	UserID   *int            `json:"user_id,omitempty"`
	Items    []LineItem      `json:"items"`
	Payment  decimal.Decimal `json:"payment"`
	Notes    string          `json:"notes"`
}

// InvoiceFilter narrows ListInvoices. Zero values mean "any".
type InvoiceFilter struct {
	Kind     InvoiceKind
	Status   InvoiceStatus
	ClientID int
	From     *time.Time
	To       *time.Time
	Limit    int
}

// CreditPayment is an abono recorded against a credit invoice.
type CreditPayment struct {
	ID        int             `json:"id"`
	InvoiceID int             `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	UserID    *int            `json:"user_id,omitempty"`
	Note      string          `json:"note"`
	PaidAt    time.Time       `json:"paid_at"`
}

// Receivable is an open credit invoice with its outstanding balance.
type Receivable struct {
	InvoiceID  int             `json:"invoice_id"`
	Number     string          `json:"number"`
	ClientID   int             `json:"client_id"`
	ClientName string          `json:"client_name"`
	IssuedAt   time.Time       `json:"issued_at"`
	Total      decimal.Decimal `json:"total"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Balance    decimal.Decimal `json:"balance"`
	DaysOpen   int             `json:"days_open"`
}
