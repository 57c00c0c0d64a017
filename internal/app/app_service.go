package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"invagro/internal/chat"
	"invagro/internal/config"
	"invagro/internal/core"
	"invagro/internal/metrics"
	"invagro/internal/pdf"
	"invagro/internal/report"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ErrInvalidDate is wrapped in a core.ValidationError for malformed YYYY-MM-DD input.
var ErrInvalidDate = errors.New("fecha inválida")

// ChatHandler runs one chat turn; *chat.Orchestrator satisfies it.
type ChatHandler interface {
	Handle(ctx context.Context, t chat.Turn) (*chat.Reply, error)
}

// Deps groups the domain services the application layer coordinates.
type Deps struct {
	Users     core.UserService
	Catalog   core.CatalogService
	Invoices  core.InvoiceService
	Credit    core.CreditService
	Orders    core.OrderService
	Reports   core.ReportingService
	Settings  core.SettingsService
	Assistant ChatHandler
	Exporter  *report.SalesExporter
	Company   config.CompanyConfig
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type appService struct {
	Deps
	now func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(d Deps) ApplicationService {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Exporter == nil {
		d.Exporter = report.NewSalesExporter(d.Company.Name, d.Logger)
	}
	return &appService{Deps: d, now: time.Now}
}

// ── Users ─────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.Users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &UserSession{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{UserID: u.ID, Username: u.Username, FullName: u.FullName, Role: u.Role}, nil
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func (s *appService) ListClients(ctx context.Context, search string) (*ClientListResult, error) {
	clients, err := s.Catalog.ListClients(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	return &ClientListResult{Clients: clients}, nil
}

func (s *appService) GetClient(ctx context.Context, id int) (*core.Client, error) {
	return s.Catalog.GetClient(ctx, id)
}

func (s *appService) CreateClient(ctx context.Context, req CreateClientRequest) (*core.Client, error) {
	return s.Catalog.CreateClient(ctx, core.CreateClientInput(req))
}

func (s *appService) ListProducts(ctx context.Context, includeInactive bool) (*ProductListResult, error) {
	products, err := s.Catalog.ListProducts(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error) {
	return s.Catalog.CreateProduct(ctx, core.CreateProductInput(req))
}

func (s *appService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.Catalog.ListCategories(ctx)
}

func (s *appService) CreateCategory(ctx context.Context, name, description string) (*core.Category, error) {
	return s.Catalog.CreateCategory(ctx, name, description)
}

// ── Invoices ──────────────────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResult, error) {
	inv, err := s.Invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		Kind:     core.InvoiceKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		ClientID: req.ClientID,
		UserID:   req.UserID,
		Items:    lineItems(req.Lines),
		Payment:  req.Payment,
		Notes:    strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.InvoiceCreated(string(inv.Kind))
	s.Logger.Info("invoice created",
		zap.Int("invoice_id", inv.ID),
		zap.String("number", inv.Number),
		zap.String("kind", string(inv.Kind)),
		zap.String("total", inv.Total.StringFixed(2)),
	)
	return &InvoiceResult{Invoice: inv}, nil
}

func (s *appService) GetInvoice(ctx context.Context, id int) (*InvoiceResult, error) {
	inv, err := s.Invoices.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

func (s *appService) ListInvoices(ctx context.Context, req ListInvoicesRequest) (*InvoiceListResult, error) {
	f := core.InvoiceFilter{
		Kind:     core.InvoiceKind(req.Kind),
		Status:   core.InvoiceStatus(req.Status),
		ClientID: req.ClientID,
		Limit:    req.Limit,
	}
	var err error
	if f.From, err = optionalDate(req.FromDate); err != nil {
		return nil, err
	}
	if f.To, err = optionalDate(req.ToDate); err != nil {
		return nil, err
	}
	invoices, err := s.Invoices.ListInvoices(ctx, f)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

func (s *appService) VoidInvoice(ctx context.Context, id int) (*InvoiceResult, error) {
	inv, err := s.Invoices.VoidInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("invoice voided", zap.Int("invoice_id", inv.ID), zap.String("number", inv.Number))
	return &InvoiceResult{Invoice: inv}, nil
}

func (s *appService) RenderInvoicePDF(ctx context.Context, id int) ([]byte, string, error) {
	inv, err := s.Invoices.GetInvoice(ctx, id)
	if err != nil {
		return nil, "", err
	}
	issuer, err := s.issuer(ctx)
	if err != nil {
		return nil, "", err
	}
	doc, err := pdf.RenderInvoice(inv, issuer)
	if err != nil {
		return nil, "", err
	}
	return doc, fmt.Sprintf("factura-%s.pdf", inv.Number), nil
}

// issuer prefers the CAI stored in settings over the configured one.
func (s *appService) issuer(ctx context.Context) (pdf.Issuer, error) {
	rangeDesc, err := s.Settings.AuthorizedRange(ctx)
	if err != nil {
		return pdf.Issuer{}, err
	}
	cai, err := s.settingOrDefault(ctx, core.SettingCAI, s.Company.CAI)
	if err != nil {
		return pdf.Issuer{}, err
	}
	return pdf.Issuer{
		Name:            s.Company.Name,
		RTN:             s.Company.RTN,
		Address:         s.Company.Address,
		Phone:           s.Company.Phone,
		CAI:             cai,
		AuthorizedRange: rangeDesc,
	}, nil
}

func (s *appService) settingOrDefault(ctx context.Context, key, fallback string) (string, error) {
	v, err := s.Settings.Get(ctx, key)
	if errors.Is(err, core.ErrNotFound) || (err == nil && v == "") {
		return fallback, nil
	}
	return v, err
}

// ── Credit ────────────────────────────────────────────────────────────────────

func (s *appService) RecordCreditPayment(ctx context.Context, req CreditPaymentRequest) (*InvoiceResult, error) {
	inv, err := s.Credit.RecordPayment(ctx, req.InvoiceID, req.Amount, req.UserID, strings.TrimSpace(req.Note))
	if err != nil {
		return nil, err
	}
	s.Logger.Info("credit payment recorded",
		zap.Int("invoice_id", inv.ID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("balance", inv.Balance.StringFixed(2)),
	)
	return &InvoiceResult{Invoice: inv}, nil
}

func (s *appService) ListCreditPayments(ctx context.Context, invoiceID int) ([]core.CreditPayment, error) {
	return s.Credit.ListPayments(ctx, invoiceID)
}

func (s *appService) ListReceivables(ctx context.Context) (*ReceivablesResult, error) {
	r, err := s.Credit.ListReceivables(ctx)
	if err != nil {
		return nil, err
	}
	return &ReceivablesResult{Receivables: r}, nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	orderDate, err := optionalDate(req.OrderDate)
	if err != nil {
		return nil, err
	}
	order, err := s.Orders.CreateOrder(ctx, core.CreateOrderInput{
		ClientID:  req.ClientID,
		UserID:    req.UserID,
		OrderDate: orderDate,
		Items:     lineItems(req.Lines),
		Notes:     strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) GetOrder(ctx context.Context, id int) (*OrderResult, error) {
	order, err := s.Orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListOrders(ctx context.Context, status *string) (*OrderListResult, error) {
	var st *core.OrderStatus
	if status != nil && *status != "" {
		v := core.OrderStatus(strings.ToLower(*status))
		st = &v
	}
	orders, err := s.Orders.ListOrders(ctx, st)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) DeliverOrder(ctx context.Context, id int) (*OrderResult, error) {
	order, err := s.Orders.DeliverOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) CancelOrder(ctx context.Context, id int) (*OrderResult, error) {
	order, err := s.Orders.CancelOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (s *appService) GetDashboard(ctx context.Context) (*core.DashboardStats, error) {
	return s.Reports.Dashboard(ctx)
}

func (s *appService) GetSalesReport(ctx context.Context, fromDate, toDate string) (*core.SalesReport, error) {
	from, to, err := s.reportRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return s.Reports.SalesReport(ctx, from, to)
}

func (s *appService) ExportSalesReport(ctx context.Context, fromDate, toDate string, w io.Writer) error {
	rep, err := s.GetSalesReport(ctx, fromDate, toDate)
	if err != nil {
		return err
	}
	return s.Exporter.Write(w, rep)
}

// reportRange defaults to the current month when both dates are empty.
func (s *appService) reportRange(fromDate, toDate string) (time.Time, time.Time, error) {
	now := s.now()
	if fromDate == "" && toDate == "" {
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	from, err := parseDate(fromDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(toDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// ── Settings ──────────────────────────────────────────────────────────────────

func (s *appService) GetInvoiceSettings(ctx context.Context) (*InvoiceSettingsResult, error) {
	desc, err := s.Settings.AuthorizedRange(ctx)
	if err != nil {
		return nil, err
	}
	cai, err := s.settingOrDefault(ctx, core.SettingCAI, s.Company.CAI)
	if err != nil {
		return nil, err
	}
	return describeRange(desc, cai), nil
}

func (s *appService) SetAuthorizedRange(ctx context.Context, descriptor, cai string) (*InvoiceSettingsResult, error) {
	descriptor = strings.TrimSpace(descriptor)
	if _, ok := core.ParseAuthorizedRange(descriptor); !ok {
		return nil, &core.ValidationError{
			Err:    errors.New("rango autorizado inválido"),
			Detail: "use el formato 000-001-01-00000001 al 000-001-01-00005000",
		}
	}
	if err := s.Settings.Set(ctx, core.SettingAuthorizedRange, descriptor); err != nil {
		return nil, err
	}
	if cai = strings.TrimSpace(cai); cai != "" {
		if err := s.Settings.Set(ctx, core.SettingCAI, cai); err != nil {
			return nil, err
		}
	}
	s.Logger.Info("authorized range updated", zap.String("range", descriptor))
	return s.GetInvoiceSettings(ctx)
}

func describeRange(desc, cai string) *InvoiceSettingsResult {
	res := &InvoiceSettingsResult{AuthorizedRange: desc, CAI: cai}
	r, ok := core.ParseAuthorizedRange(desc)
	if !ok {
		return res
	}
	res.Valid = true
	res.Prefix = r.Prefix
	res.Start = r.Format(r.Start)
	if r.End > 0 {
		res.End = r.Format(r.End)
	}
	return res
}

// ── Chat ──────────────────────────────────────────────────────────────────────

func (s *appService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if s.Assistant == nil {
		return nil, chat.ErrProcessing
	}
	reply, err := s.Assistant.Handle(ctx, chat.Turn{
		SessionID: req.SessionID,
		Username:  req.Username,
		Message:   req.Message,
	})
	if err != nil {
		return nil, err
	}
	return &ChatResult{Reply: reply.Text, Tool: reply.Tool}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func lineItems(lines []LineInput) []core.LineItem {
	items := make([]core.LineItem, len(lines))
	for i, l := range lines {
		items[i] = core.LineItem(l)
	}
	return items
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &core.ValidationError{Err: ErrInvalidDate, Detail: fmt.Sprintf("%q, use AAAA-MM-DD", s)}
	}
	return t, nil
}

func optionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
