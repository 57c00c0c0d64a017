package app

import "invagro/internal/core"

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int
	Username string
	Role     string
}

// UserResult is returned by GetUser.
type UserResult struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type ClientListResult struct {
	Clients []core.Client `json:"clients"`
}

type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// InvoiceResult is returned by invoice operations.
type InvoiceResult struct {
	Invoice *core.Invoice `json:"invoice"`
}

type InvoiceListResult struct {
	Invoices []core.Invoice `json:"invoices"`
}

type ReceivablesResult struct {
	Receivables []core.Receivable `json:"receivables"`
}

// OrderResult is returned by order lifecycle operations.
type OrderResult struct {
	Order *core.Order `json:"order"`
}

type OrderListResult struct {
	Orders []core.Order `json:"orders"`
}

// InvoiceSettingsResult describes the active numbering configuration.
// NextNumber is empty when no valid range is configured.
type InvoiceSettingsResult struct {
	AuthorizedRange string `json:"authorized_range"`
	CAI             string `json:"cai"`
	Valid           bool   `json:"valid"`
	Prefix          string `json:"prefix,omitempty"`
	Start           string `json:"start,omitempty"`
	End             string `json:"end,omitempty"`
}

// ChatResult is returned by Chat.
type ChatResult struct {
	Reply string `json:"reply"`
	Tool  string `json:"tool,omitempty"`
}
