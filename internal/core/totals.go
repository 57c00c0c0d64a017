package core

import (
	"github.com/shopspring/decimal"
)

// TaxRate is the ISV rate applied to tax-applicable lines.
var TaxRate = decimal.RequireFromString("0.15")

// LineItem is one requested line before pricing.
type LineItem struct {
	ProductID    int             `json:"product_id"`
	Quantity     int             `json:"quantity"`
	UnitDiscount decimal.Decimal `json:"unit_discount"`
}

// PricedLine is a LineItem after the calculator resolved price, discount and tax.
type PricedLine struct {
	ProductID    int             `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitDiscount decimal.Decimal `json:"unit_discount"`
	Gross        decimal.Decimal `json:"gross"`
	Net          decimal.Decimal `json:"net"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// InvoiceTotals holds the aggregate amounts of a priced document.
// Total always equals max(0, Subtotal - DiscountTotal) + TaxAmount.
type InvoiceTotals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxableBase   decimal.Decimal `json:"taxable_base"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Lines         []PricedLine    `json:"lines"`
}

// ComputeTotals prices every line against catalog. It has no side effects.
func ComputeTotals(items []LineItem, catalog map[int]Product) (*InvoiceTotals, error) {
	if len(items) == 0 {
		return nil, &ValidationError{Err: ErrEmptyLines}
	}

	t := &InvoiceTotals{
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		TaxableBase:   decimal.Zero,
		TaxAmount:     decimal.Zero,
		Lines:         make([]PricedLine, 0, len(items)),
	}

	// Tax is rounded once on the aggregate so per-line cents do not drift.
	unroundedTax := decimal.Zero
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, invalid(ErrInvalidQuantity, "línea %d", i+1)
		}
		if item.UnitDiscount.IsNegative() {
			return nil, invalid(ErrNegativeDiscount, "línea %d", i+1)
		}
		p, ok := catalog[item.ProductID]
		if !ok {
			return nil, invalid(ErrProductNotFound, "id %d", item.ProductID)
		}

		line := priceLine(p, item)
		t.Subtotal = t.Subtotal.Add(line.Gross)
		t.DiscountTotal = t.DiscountTotal.Add(line.UnitDiscount.Mul(decimal.NewFromInt(int64(line.Quantity))))
		if p.TaxApplicable {
			t.TaxableBase = t.TaxableBase.Add(line.Net)
			unroundedTax = unroundedTax.Add(line.Net.Mul(TaxRate))
		}
		t.Lines = append(t.Lines, line)
	}
	t.TaxAmount = unroundedTax.Round(2)

	t.Total = decimal.Max(decimal.Zero, t.Subtotal.Sub(t.DiscountTotal)).Add(t.TaxAmount)
	return t, nil
}

// priceLine clamps the unit discount to the unit price and computes the line amounts.
func priceLine(p Product, item LineItem) PricedLine {
	qty := decimal.NewFromInt(int64(item.Quantity))
	discount := decimal.Min(item.UnitDiscount.Round(2), p.Price)

	gross := p.Price.Mul(qty)
	net := decimal.Max(decimal.Zero, p.Price.Sub(discount).Mul(qty))
	tax := decimal.Zero
	if p.TaxApplicable {
		tax = net.Mul(TaxRate).Round(2)
	}

	return PricedLine{
		ProductID:    p.ID,
		ProductName:  p.Name,
		Quantity:     item.Quantity,
		UnitPrice:    p.Price,
		UnitDiscount: discount,
		Gross:        gross,
		Net:          net,
		Tax:          tax,
		Total:        net.Add(tax),
	}
}

// Settlement is the outcome of applying the payment received at creation time.
type Settlement struct {
	Paid    decimal.Decimal `json:"paid"`
	Change  decimal.Decimal `json:"change"`
	Balance decimal.Decimal `json:"balance"`
	Status  InvoiceStatus   `json:"status"`
}

// SettlePayment applies the creation-time payment rules for each invoice kind.
// Cash invoices must be paid in full and may return change. Credit invoices
// accept any non-negative payment up to the total and stay open while a balance remains.
func SettlePayment(kind InvoiceKind, total, payment decimal.Decimal) (Settlement, error) {
	if payment.IsNegative() {
		return Settlement{}, &ValidationError{Err: ErrNegativePayment}
	}

	switch kind {
	case InvoiceKindCash:
		if payment.LessThan(total) {
			return Settlement{}, invalid(ErrInsufficientPayment, "total %s, recibido %s", total.StringFixed(2), payment.StringFixed(2))
		}
		return Settlement{
			Paid:    total,
			Change:  payment.Sub(total),
			Balance: decimal.Zero,
			Status:  InvoiceStatusPaid,
		}, nil

	case InvoiceKindCredit:
		paid := decimal.Min(payment, total)
		balance := decimal.Max(decimal.Zero, total.Sub(payment))
		status := InvoiceStatusOpen
		if balance.IsZero() {
			status = InvoiceStatusPaid
		}
		return Settlement{
			Paid:    paid,
			Change:  decimal.Zero,
			Balance: balance,
			Status:  status,
		}, nil

	default:
		return Settlement{}, invalid(ErrInvalidKind, "%q", kind)
	}
}
