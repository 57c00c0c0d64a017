package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"invagro/internal/app"
	"invagro/internal/money"

	"github.com/google/uuid"
)

// Usage lists the one-shot commands handled by Run.
const Usage = `Comandos:
  ask "<pregunta>"                 consulta de ventas en lenguaje natural
  report <desde> <hasta> <archivo> exporta el reporte de ventas (.xlsx)
  pdf <factura-id> <archivo>       guarda la factura en PDF
  receivables                      lista las cuentas por cobrar
  range [descriptor] [cai]         muestra o cambia el rango autorizado`

// Run executes a one-shot CLI command.
// args is os.Args[1:] without the migrate/seed/chat modes handled by main.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer, username string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", Usage)
	}

	switch args[0] {
	case "ask", "a":
		if len(args) < 2 {
			return fmt.Errorf(`usage: app ask "<pregunta>"`)
		}
		res, err := svc.Chat(ctx, app.ChatRequest{
			SessionID: "cli-" + uuid.NewString(),
			Username:  username,
			Message:   strings.Join(args[1:], " "),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Reply)

	case "report":
		if len(args) < 4 {
			return fmt.Errorf("usage: app report <YYYY-MM-DD> <YYYY-MM-DD> <archivo.xlsx>")
		}
		if err := writeFile(args[3], func(w io.Writer) error {
			return svc.ExportSalesReport(ctx, args[1], args[2], w)
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Reporte guardado en %s\n", args[3])

	case "pdf":
		if len(args) < 3 {
			return fmt.Errorf("usage: app pdf <factura-id> <archivo.pdf>")
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid invoice id %q", args[1])
		}
		doc, _, err := svc.RenderInvoicePDF(ctx, id)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[2], doc, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[2], err)
		}
		fmt.Fprintf(out, "Factura guardada en %s\n", args[2])

	case "receivables", "cxc":
		res, err := svc.ListReceivables(ctx)
		if err != nil {
			return err
		}
		printReceivables(out, res)

	case "range":
		if len(args) == 1 {
			res, err := svc.GetInvoiceSettings(ctx)
			if err != nil {
				return err
			}
			printRange(out, res)
			return nil
		}
		cai := ""
		if len(args) > 2 {
			cai = args[2]
		}
		res, err := svc.SetAuthorizedRange(ctx, args[1], cai)
		if err != nil {
			return err
		}
		printRange(out, res)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], Usage)
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func printReceivables(out io.Writer, res *app.ReceivablesResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 78))
	fmt.Fprintf(out, "  %-22s %-26s %12s %10s\n", "FACTURA", "CLIENTE", "SALDO", "DÍAS")
	fmt.Fprintln(out, strings.Repeat("-", 78))
	if len(res.Receivables) == 0 {
		fmt.Fprintln(out, "  No hay cuentas por cobrar.")
	}
	for _, r := range res.Receivables {
		fmt.Fprintf(out, "  %-22s %-26s %12s %10d\n", r.Number, truncate(r.ClientName, 26), money.Format(r.Balance), r.DaysOpen)
	}
	fmt.Fprintln(out, strings.Repeat("=", 78))
}

func printRange(out io.Writer, res *app.InvoiceSettingsResult) {
	if !res.Valid {
		fmt.Fprintf(out, "Rango autorizado: %q (no válido, se usa numeración provisional F001-)\n", res.AuthorizedRange)
		return
	}
	end := res.End
	if end == "" {
		end = "sin límite"
	}
	fmt.Fprintf(out, "Rango autorizado: %s al %s\nCAI: %s\n", res.Start, end, res.CAI)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
