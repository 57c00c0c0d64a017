package chat

import (
	"fmt"
	"strings"
	"time"

	"invagro/internal/analytics"
	"invagro/internal/money"
)

const noResults = "No se encontraron resultados para el criterio indicado."

// FormatResult renders tool rows without the model: the criterion, then one
// bullet per row.
func FormatResult(res *analytics.Result) string {
	if res == nil {
		return noResults
	}
	var b strings.Builder
	if res.Criterion != "" {
		b.WriteString(res.Criterion)
		b.WriteString("\n")
	}
	if res.RowCount == 0 {
		b.WriteString(noResults)
		return b.String()
	}

	switch rows := res.Rows.(type) {
	case []analytics.ProductRow:
		for _, r := range rows {
			fmt.Fprintf(&b, "• %s: %s unidades, %s\n", r.ProductName, money.FormatInt(r.QtyTotal), money.Format(r.Total))
		}
	case []analytics.InactiveClientRow:
		for _, r := range rows {
			if r.LastPurchase == nil {
				fmt.Fprintf(&b, "• %s: sin compras registradas\n", r.ClientName)
				continue
			}
			fmt.Fprintf(&b, "• %s: última compra %s\n", r.ClientName, formatDate(*r.LastPurchase))
		}
	case []analytics.ClientPurchasesRow:
		for _, r := range rows {
			last := "sin compras en el periodo"
			if r.LastPurchase != nil {
				last = "última compra " + formatDate(*r.LastPurchase)
			}
			fmt.Fprintf(&b, "• %s: %s líneas, %s unidades, %s, %s\n",
				r.ClientName, money.FormatInt(r.Lines), money.FormatInt(r.QtyTotal), money.Format(r.Total), last)
		}
	case []analytics.DecreasedProductRow:
		actual, pasado := "año actual", "año anterior"
		if p, ok := res.Params.(analytics.ProductosDisminuidosParams); ok {
			actual, pasado = fmt.Sprint(p.YearActual), fmt.Sprint(p.YearPasado)
		}
		for _, r := range rows {
			fmt.Fprintf(&b, "• %s: %s unidades en %s frente a %s en %s (%s frente a %s)\n",
				r.ProductName, money.FormatInt(r.QtyActual), actual, money.FormatInt(r.QtyPasado), pasado,
				money.Format(r.TotalActual), money.Format(r.TotalPasado))
		}
	default:
		fmt.Fprintf(&b, "%d resultados.\n", res.RowCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
