package repl

import (
	"fmt"
	"io"
	"strings"

	"invagro/internal/app"
	"invagro/internal/core"
	"invagro/internal/money"

	"github.com/shopspring/decimal"
)

var statusLabels = map[string]string{
	"pending":   "pendiente",
	"delivered": "entregado",
	"cancelled": "cancelado",
	"paid":      "pagada",
	"open":      "abierta",
	"void":      "anulada",
}

func label(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

func rule(out io.Writer, ch string) {
	fmt.Fprintln(out, strings.Repeat(ch, 78))
}

func printClients(out io.Writer, result *app.ClientListResult) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintln(out, "  CLIENTES")
	rule(out, "=")
	if len(result.Clients) == 0 {
		fmt.Fprintln(out, "  No se encontraron clientes.")
		rule(out, "=")
		return
	}
	fmt.Fprintf(out, "  %-5s %-30s %-16s %s\n", "ID", "NOMBRE", "RTN/DNI", "TELÉFONO")
	rule(out, "-")
	for _, c := range result.Clients {
		rtn := "-"
		if c.RTNDNI != nil {
			rtn = *c.RTNDNI
		}
		fmt.Fprintf(out, "  %-5d %-30s %-16s %s\n", c.ID, truncate(c.Name, 30), rtn, c.Phone)
	}
	rule(out, "=")
}

func printProducts(out io.Writer, result *app.ProductListResult) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintln(out, "  PRODUCTOS")
	rule(out, "=")
	if len(result.Products) == 0 {
		fmt.Fprintln(out, "  No se encontraron productos.")
		rule(out, "=")
		return
	}
	fmt.Fprintf(out, "  %-5s %-9s %-30s %14s %4s %7s\n", "ID", "CÓDIGO", "NOMBRE", "PRECIO", "ISV", "STOCK")
	rule(out, "-")
	for _, p := range result.Products {
		isv := "no"
		if p.TaxApplicable {
			isv = "sí"
		}
		fmt.Fprintf(out, "  %-5d %-9s %-30s %14s %4s %7d\n",
			p.ID, p.Code, truncate(p.Name, 30), money.Format(p.Price), isv, p.Stock)
	}
	rule(out, "=")
}

func printOrders(out io.Writer, result *app.OrderListResult) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  %-5s %-12s %-10s %-26s %-10s %14s\n", "ID", "NÚMERO", "FECHA", "CLIENTE", "ESTADO", "TOTAL")
	rule(out, "-")
	if len(result.Orders) == 0 {
		fmt.Fprintln(out, "  No hay pedidos.")
	}
	for _, o := range result.Orders {
		fmt.Fprintf(out, "  %-5d %-12s %-10s %-26s %-10s %14s\n",
			o.ID, o.Number, o.OrderDate.Format("2006-01-02"), truncate(o.ClientName, 26),
			label(string(o.Status)), money.Format(o.Total))
	}
	rule(out, "=")
}

func printOrderDetail(out io.Writer, o *core.Order) {
	fmt.Fprintf(out, "Pedido %s  Cliente: %s  Fecha: %s  Estado: %s\n",
		o.Number, o.ClientName, o.OrderDate.Format("2006-01-02"), label(string(o.Status)))
	printLines(out, o.Lines)
	printTotals(out, o.Subtotal, o.DiscountTotal, o.TaxAmount, o.Total)
}

func printInvoices(out io.Writer, result *app.InvoiceListResult) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  %-5s %-20s %-7s %-24s %-8s %14s\n", "ID", "NÚMERO", "TIPO", "CLIENTE", "ESTADO", "TOTAL")
	rule(out, "-")
	if len(result.Invoices) == 0 {
		fmt.Fprintln(out, "  No hay facturas.")
	}
	for _, inv := range result.Invoices {
		kind := "contado"
		if inv.Kind == core.InvoiceKindCredit {
			kind = "crédito"
		}
		fmt.Fprintf(out, "  %-5d %-20s %-7s %-24s %-8s %14s\n",
			inv.ID, inv.Number, kind, truncate(inv.ClientName, 24), label(string(inv.Status)), money.Format(inv.Total))
	}
	rule(out, "=")
}

func printInvoiceDetail(out io.Writer, inv *core.Invoice) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Factura %s  (%s)\n", inv.Number, label(string(inv.Status)))
	fmt.Fprintf(out, "Cliente: %s  RTN: %s\n", inv.ClientName, inv.ClientRTN)
	fmt.Fprintf(out, "Fecha:   %s\n", inv.IssuedAt.Format("2006-01-02 15:04"))
	printLines(out, inv.Lines)
	printTotals(out, inv.Subtotal, inv.DiscountTotal, inv.TaxAmount, inv.Total)
	fmt.Fprintf(out, "  %-20s %14s\n", "Pagado:", money.Format(inv.PaidAmount))
	if inv.Kind == core.InvoiceKindCredit {
		fmt.Fprintf(out, "  %-20s %14s\n", "Saldo:", money.Format(inv.Balance))
	} else {
		fmt.Fprintf(out, "  %-20s %14s\n", "Cambio:", money.Format(inv.ChangeAmount))
	}
}

func printLines(out io.Writer, lines []core.DocumentLine) {
	rule(out, "-")
	fmt.Fprintf(out, "  %-3s %-30s %6s %12s %12s %14s\n", "#", "PRODUCTO", "CANT", "PRECIO", "DESC", "TOTAL")
	for _, l := range lines {
		fmt.Fprintf(out, "  %-3d %-30s %6d %12s %12s %14s\n",
			l.LineNumber, truncate(l.ProductName, 30), l.Quantity,
			money.Format(l.UnitPrice), money.Format(l.UnitDiscount), money.Format(l.Total))
	}
	rule(out, "-")
}

func printTotals(out io.Writer, subtotal, discount, tax, total decimal.Decimal) {
	fmt.Fprintf(out, "  %-20s %14s\n", "Subtotal:", money.Format(subtotal))
	fmt.Fprintf(out, "  %-20s %14s\n", "Descuento:", money.Format(discount))
	fmt.Fprintf(out, "  %-20s %14s\n", "ISV 15%:", money.Format(tax))
	fmt.Fprintf(out, "  %-20s %14s\n", "Total:", money.Format(total))
}

func printReceivables(out io.Writer, result *app.ReceivablesResult) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintln(out, "  CUENTAS POR COBRAR")
	rule(out, "=")
	if len(result.Receivables) == 0 {
		fmt.Fprintln(out, "  No hay saldos pendientes.")
		rule(out, "=")
		return
	}
	fmt.Fprintf(out, "  %-20s %-26s %14s %6s\n", "FACTURA", "CLIENTE", "SALDO", "DÍAS")
	rule(out, "-")
	for _, r := range result.Receivables {
		fmt.Fprintf(out, "  %-20s %-26s %14s %6d\n", r.Number, truncate(r.ClientName, 26), money.Format(r.Balance), r.DaysOpen)
	}
	rule(out, "=")
}

func printDashboard(out io.Writer, s *core.DashboardStats) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Clientes:            %d\n", s.Clients)
	fmt.Fprintf(out, "  Productos activos:   %d\n", s.ActiveProducts)
	fmt.Fprintf(out, "  Facturas:            %d (%d con saldo)\n", s.Invoices, s.OpenInvoices)
	fmt.Fprintf(out, "  Por cobrar:          %s\n", money.Format(s.ReceivableAmount))
	fmt.Fprintf(out, "  Pedidos pendientes:  %d\n", s.PendingOrders)
}

func printSalesReport(out io.Writer, r *core.SalesReport) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  VENTAS %s al %s\n", r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
	rule(out, "=")
	for _, s := range r.BySource {
		fmt.Fprintf(out, "  %-12s %6d uds %14s\n", s.Source, s.Quantity, money.Format(s.Amount))
	}
	rule(out, "-")
	for i, p := range r.ByProduct {
		if i == 10 {
			break
		}
		fmt.Fprintf(out, "  %2d. %-30s %6d %14s\n", i+1, truncate(p.ProductName, 30), p.Quantity, money.Format(p.Amount))
	}
	rule(out, "-")
	fmt.Fprintf(out, "  %-12s %6d uds %14s\n", "TOTAL", r.Quantity, money.Format(r.Total))
	rule(out, "=")
}

func printRange(out io.Writer, res *app.InvoiceSettingsResult) {
	if !res.Valid {
		fmt.Fprintf(out, "Rango autorizado no válido: %q\n", res.AuthorizedRange)
		return
	}
	end := res.End
	if end == "" {
		end = "sin límite"
	}
	fmt.Fprintf(out, "Rango: %s al %s  CAI: %s\n", res.Start, end, res.CAI)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `Comandos:
  /clientes [búsqueda]          lista clientes
  /productos [todos]            lista productos activos (o todos)
  /facturas                     últimas facturas
  /factura <id>                 detalle de una factura
  /cxc                          cuentas por cobrar
  /pedidos [estado]             lista pedidos (pending, delivered, cancelled)
  /nuevo-pedido <cliente-id>    crea un pedido de forma interactiva
  /entregar <pedido-id>         marca un pedido como entregado
  /cancelar <pedido-id>         cancela un pedido pendiente
  /panel                        resumen general
  /ventas [desde hasta]         reporte de ventas (YYYY-MM-DD)
  /rango                        rango de facturación autorizado
  /limpiar                      reinicia la conversación con el asistente
  /salir                        termina la sesión
Cualquier otro texto se envía al asistente de ventas.`)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
