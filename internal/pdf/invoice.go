// Package pdf renders invoices as printable documents.
package pdf

import (
	"fmt"
	"strconv"

	"invagro/internal/core"
	"invagro/internal/money"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Issuer is the company block printed on every invoice.
type Issuer struct {
	Name            string
	RTN             string
	Address         string
	Phone           string
	CAI             string
	AuthorizedRange string
}

var (
	small      = props.Text{Size: 8}
	smallRight = props.Text{Size: 8, Align: align.Right}
	header     = props.Text{Size: 8, Style: fontstyle.Bold}
	headerR    = props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}
)

// RenderInvoice returns the PDF bytes for inv.
func RenderInvoice(inv *core.Invoice, issuer Issuer) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("invoice is nil")
	}

	cfg := config.NewBuilder().
		WithLeftMargin(12).
		WithRightMargin(12).
		WithTopMargin(10).
		Build()
	m := maroto.New(cfg)

	m.AddRow(10,
		text.NewCol(8, issuer.Name, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, kindLabel(inv.Kind), props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(16,
		col.New(8).Add(
			text.New("RTN: "+issuer.RTN, props.Text{Size: 8}),
			text.New(issuer.Address, props.Text{Size: 8, Top: 4}),
			text.New("Tel. "+issuer.Phone, props.Text{Size: 8, Top: 8}),
		),
		col.New(4).Add(
			text.New("No. "+inv.Number, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
			text.New("Fecha: "+inv.IssuedAt.Format("02/01/2006 15:04"), props.Text{Size: 8, Top: 5, Align: align.Right}),
			text.New("Estado: "+statusLabel(inv.Status), props.Text{Size: 8, Top: 9, Align: align.Right}),
		),
	)
	if issuer.CAI != "" || issuer.AuthorizedRange != "" {
		m.AddRow(8,
			text.NewCol(6, "CAI: "+issuer.CAI, small),
			text.NewCol(6, "Rango autorizado: "+issuer.AuthorizedRange, smallRight),
		)
	}

	m.AddRow(4, line.NewCol(12))
	m.AddRow(14,
		col.New(12).Add(
			text.New("Cliente: "+inv.ClientName, props.Text{Size: 9, Style: fontstyle.Bold}),
			text.New("RTN/DNI: "+orDash(inv.ClientRTN), props.Text{Size: 8, Top: 5}),
			text.New("Dirección: "+orDash(inv.ClientAddress), props.Text{Size: 8, Top: 9}),
		),
	)

	m.AddRow(7,
		text.NewCol(2, "Código", header),
		text.NewCol(4, "Descripción", header),
		text.NewCol(1, "Cant.", headerR),
		text.NewCol(2, "Precio", headerR),
		text.NewCol(1, "Desc.", headerR),
		text.NewCol(2, "Total", headerR),
	)
	m.AddRow(2, line.NewCol(12))
	for _, l := range inv.Lines {
		m.AddRow(6,
			text.NewCol(2, l.ProductCode, small),
			text.NewCol(4, l.ProductName, small),
			text.NewCol(1, strconv.Itoa(l.Quantity), smallRight),
			text.NewCol(2, money.Format(l.UnitPrice), smallRight),
			text.NewCol(1, l.UnitDiscount.StringFixed(2), smallRight),
			text.NewCol(2, money.Format(l.Total), smallRight),
		)
	}
	m.AddRow(4, line.NewCol(12))

	for _, t := range totalsRows(inv) {
		m.AddRow(6,
			col.New(7),
			text.NewCol(3, t.label, t.labelProps),
			text.NewCol(2, t.value, t.valueProps),
		)
	}
	if inv.Notes != "" {
		m.AddRow(10, text.NewCol(12, "Notas: "+inv.Notes, props.Text{Size: 8, Top: 3}))
	}
	m.AddRow(10, text.NewCol(12, "La factura es beneficio de todos. Exíjala.", props.Text{Size: 7, Top: 4, Align: align.Center}))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

type totalRow struct {
	label, value           string
	labelProps, valueProps props.Text
}

func totalsRows(inv *core.Invoice) []totalRow {
	row := func(label, value string) totalRow {
		return totalRow{label: label, value: value, labelProps: small, valueProps: smallRight}
	}
	rows := []totalRow{
		row("Subtotal", money.Format(inv.Subtotal)),
		row("Descuento", money.Format(inv.DiscountTotal)),
		row("Importe gravado 15%", money.Format(inv.TaxableBase)),
		row("ISV 15%", money.Format(inv.TaxAmount)),
		{label: "Total", value: money.Format(inv.Total), labelProps: header, valueProps: headerR},
	}
	switch inv.Kind {
	case core.InvoiceKindCash:
		rows = append(rows, row("Efectivo recibido", money.Format(inv.PaidAmount.Add(inv.ChangeAmount))), row("Cambio", money.Format(inv.ChangeAmount)))
	case core.InvoiceKindCredit:
		rows = append(rows, row("Abonado", money.Format(inv.PaidAmount)), row("Saldo", money.Format(inv.Balance)))
	}
	return rows
}

func kindLabel(k core.InvoiceKind) string {
	if k == core.InvoiceKindCredit {
		return "FACTURA CRÉDITO"
	}
	return "FACTURA CONTADO"
}

func statusLabel(s core.InvoiceStatus) string {
	switch s {
	case core.InvoiceStatusPaid:
		return "Pagada"
	case core.InvoiceStatusOpen:
		return "Pendiente"
	case core.InvoiceStatusVoid:
		return "Anulada"
	}
	return string(s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
