package app

import (
	"context"
	"io"

	"invagro/internal/core"
)

// ApplicationService is the single interface all UI adapters (REPL, CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// ListClients returns clients whose name or RTN/DNI contains search (all when empty).
	ListClients(ctx context.Context, search string) (*ClientListResult, error)

	GetClient(ctx context.Context, id int) (*core.Client, error)

	CreateClient(ctx context.Context, req CreateClientRequest) (*core.Client, error)

	// ListProducts returns active products, or every product when includeInactive is set.
	ListProducts(ctx context.Context, includeInactive bool) (*ProductListResult, error)

	CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error)

	ListCategories(ctx context.Context) ([]core.Category, error)

	CreateCategory(ctx context.Context, name, description string) (*core.Category, error)

	// CreateInvoice prices the lines, settles the payment and allocates the
	// next invoice number in one transaction.
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResult, error)

	GetInvoice(ctx context.Context, id int) (*InvoiceResult, error)

	ListInvoices(ctx context.Context, req ListInvoicesRequest) (*InvoiceListResult, error)

	// VoidInvoice cancels an invoice without payments and restores stock.
	VoidInvoice(ctx context.Context, id int) (*InvoiceResult, error)

	// RenderInvoicePDF returns the printable invoice and a suggested file name.
	RenderInvoicePDF(ctx context.Context, id int) ([]byte, string, error)

	// RecordCreditPayment applies an abono to an open credit invoice.
	RecordCreditPayment(ctx context.Context, req CreditPaymentRequest) (*InvoiceResult, error)

	ListCreditPayments(ctx context.Context, invoiceID int) ([]core.CreditPayment, error)

	// ListReceivables returns open credit invoices, oldest first.
	ListReceivables(ctx context.Context) (*ReceivablesResult, error)

	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error)

	GetOrder(ctx context.Context, id int) (*OrderResult, error)

	// ListOrders returns orders, optionally filtered by status.
	ListOrders(ctx context.Context, status *string) (*OrderListResult, error)

	DeliverOrder(ctx context.Context, id int) (*OrderResult, error)

	CancelOrder(ctx context.Context, id int) (*OrderResult, error)

	GetDashboard(ctx context.Context) (*core.DashboardStats, error)

	// GetSalesReport covers fromDate..toDate (YYYY-MM-DD, inclusive).
	GetSalesReport(ctx context.Context, fromDate, toDate string) (*core.SalesReport, error)

	// ExportSalesReport writes the sales report as an .xlsx workbook.
	ExportSalesReport(ctx context.Context, fromDate, toDate string, w io.Writer) error

	GetInvoiceSettings(ctx context.Context) (*InvoiceSettingsResult, error)

	// SetAuthorizedRange stores a new authorized range descriptor after parsing it.
	SetAuthorizedRange(ctx context.Context, descriptor, cai string) (*InvoiceSettingsResult, error)

	// Chat runs one analytics chat turn in an explicit session.
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)
}
