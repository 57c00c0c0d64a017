package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"invagro/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceService_CashInvoiceNumbering(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	settings := core.NewSettingsService(pool, "")
	require.NoError(t, settings.Set(ctx, core.SettingAuthorizedRange, "FAC-0001 a FAC-9999"))
	invoices := core.NewInvoiceService(pool, settings)

	first, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		Kind:     core.InvoiceKindCash,
		ClientID: 1,
		Items:    []core.LineItem{{ProductID: 1, Quantity: 3}},
		Payment:  d("50.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "FAC-0001", first.Number)
	assert.Equal(t, core.InvoiceStatusPaid, first.Status)
	assert.True(t, first.Total.Equal(d("34.50")), "total %s", first.Total)
	assert.True(t, first.ChangeAmount.Equal(d("15.50")), "change %s", first.ChangeAmount)
	require.Len(t, first.Lines, 1)

	second, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		Kind:     core.InvoiceKindCash,
		ClientID: 2,
		Items:    []core.LineItem{{ProductID: 2, Quantity: 1}},
		Payment:  d("65.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "FAC-0002", second.Number)

	var stock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = 1`).Scan(&stock))
	assert.Equal(t, 97, stock)
}

func TestInvoiceService_RejectsInsufficientCashWithoutWriting(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	invoices := core.NewInvoiceService(pool, core.NewSettingsService(pool, "FAC-0001"))

	_, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		Kind:     core.InvoiceKindCash,
		ClientID: 1,
		Items:    []core.LineItem{{ProductID: 2, Quantity: 2}},
		Payment:  d("100.00"),
	})
	require.ErrorIs(t, err, core.ErrInsufficientPayment)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n))
	assert.Zero(t, n)
}

func TestInvoiceService_ConcurrentNumbersAreUnique(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	invoices := core.NewInvoiceService(pool, core.NewSettingsService(pool, "FAC-0001"))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
				Kind:     core.InvoiceKindCredit,
				ClientID: 1,
				Items:    []core.LineItem{{ProductID: 2, Quantity: 1}},
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[inv.Number] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, workers)
	assert.True(t, numbers["FAC-0001"])
	assert.True(t, numbers["FAC-0008"])
}

func TestInvoiceService_FallbackNumberWithoutRange(t *testing.T) {
	pool := setupTestDB(t)
	invoices := core.NewInvoiceService(pool, core.NewSettingsService(pool, ""))

	inv, err := invoices.CreateInvoice(context.Background(), core.CreateInvoiceInput{
		Kind:     core.InvoiceKindCredit,
		ClientID: 1,
		Items:    []core.LineItem{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^F001-\d{14}$`, inv.Number)
}

func TestInvoiceService_FallbackNumbersInSameSecondAreUnique(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	invoices := core.NewInvoiceService(pool, core.NewSettingsService(pool, ""))

	const workers = 5
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
				Kind:     core.InvoiceKindCredit,
				ClientID: 1,
				Items:    []core.LineItem{{ProductID: 2, Quantity: 1}},
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			numbers[inv.Number] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, workers)
	for n := range numbers {
		assert.Regexp(t, `^F001-\d{14}$`, n)
	}
}

func TestCreditService_PaymentsCloseInvoice(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	invoices := core.NewInvoiceService(pool, core.NewSettingsService(pool, "CR-001"))
	credit := core.NewCreditService(pool)

	inv, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		Kind:     core.InvoiceKindCredit,
		ClientID: 2,
		Items:    []core.LineItem{{ProductID: 2, Quantity: 2}},
		Payment:  d("30.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, core.InvoiceStatusOpen, inv.Status)
	assert.True(t, inv.Balance.Equal(d("100.00")))

	recv, err := credit.ListReceivables(ctx)
	require.NoError(t, err)
	require.Len(t, recv, 1)
	assert.True(t, recv[0].Balance.Equal(d("100.00")))

	_, err = credit.RecordPayment(ctx, inv.ID, d("100.01"), nil, "")
	require.ErrorIs(t, err, core.ErrPaymentExceeds)

	inv, err = credit.RecordPayment(ctx, inv.ID, d("40.00"), nil, "primer abono")
	require.NoError(t, err)
	assert.Equal(t, core.InvoiceStatusOpen, inv.Status)

	inv, err = credit.RecordPayment(ctx, inv.ID, d("60.00"), nil, "")
	require.NoError(t, err)
	assert.Equal(t, core.InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.Balance.IsZero())

	payments, err := credit.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	_, err = invoices.VoidInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, core.ErrInvalidState, "invoices with payments cannot be voided")
}

func TestInvoiceService_VoidRestoresStockAndLeavesSales(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	invoices := core.NewInvoiceService(pool, core.NewSettingsService(pool, "V-01"))
	reports := core.NewReportingService(pool)

	inv, err := invoices.CreateInvoice(ctx, core.CreateInvoiceInput{
		Kind:     core.InvoiceKindCash,
		ClientID: 1,
		Items:    []core.LineItem{{ProductID: 1, Quantity: 5}},
		Payment:  d("57.50"),
	})
	require.NoError(t, err)

	today := time.Now()
	rep, err := reports.SalesReport(ctx, today.AddDate(0, 0, -1), today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, rep.Total.Equal(d("57.50")))

	voided, err := invoices.VoidInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, core.InvoiceStatusVoid, voided.Status)

	rep, err = reports.SalesReport(ctx, today.AddDate(0, 0, -1), today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, rep.Total.IsZero())

	var stock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = 1`).Scan(&stock))
	assert.Equal(t, 100, stock)

	_, err = invoices.VoidInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestOrderService_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	orders := core.NewOrderService(pool, core.NewDocumentService())

	o, err := orders.CreateOrder(ctx, core.CreateOrderInput{
		ClientID: 2,
		Items:    []core.LineItem{{ProductID: 1, Quantity: 2, UnitDiscount: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "PED-000001", o.Number)
	assert.Equal(t, core.OrderStatusPending, o.Status)
	assert.True(t, o.Total.Equal(d("20.70")), "total %s", o.Total)

	o2, err := orders.CreateOrder(ctx, core.CreateOrderInput{
		ClientID: 1,
		Items:    []core.LineItem{{ProductID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "PED-000002", o2.Number)

	o, err = orders.DeliverOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusDelivered, o.Status)
	assert.NotNil(t, o.DeliveredAt)

	_, err = orders.CancelOrder(ctx, o.ID)
	assert.ErrorIs(t, err, core.ErrInvalidState)

	pending := core.OrderStatusPending
	list, err := orders.ListOrders(ctx, &pending)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o2.ID, list[0].ID)
}

func TestUserService_Authenticate(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	users := core.NewUserService(pool)

	_, err := users.CreateUser(ctx, "admin", "invagro2024", "Administrador", "", core.RoleAdmin)
	require.NoError(t, err)

	u, err := users.Authenticate(ctx, "admin", "invagro2024")
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, u.Role)

	_, err = users.Authenticate(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, err = users.Authenticate(ctx, "nobody", "x")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestCatalogService_CreateAndList(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	catalog := core.NewCatalogService(pool)

	cat := 2
	p, err := catalog.CreateProduct(ctx, core.CreateProductInput{
		Code: "shmp001", Name: "Shampoo Antipulgas Premium", CategoryID: &cat,
		Price: d("45.00"), TaxApplicable: true, Stock: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "SHMP001", p.Code)
	assert.Equal(t, "shampoo", p.CategoryName)

	_, err = catalog.CreateProduct(ctx, core.CreateProductInput{Code: "SHMP001", Name: "dup", Price: d("1")})
	assert.ErrorIs(t, err, core.ErrDuplicate)

	clients, err := catalog.ListClients(ctx, "san fran")
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, 2, clients[0].ID)
}
