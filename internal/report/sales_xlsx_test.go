package report

import (
	"bytes"
	"testing"
	"time"

	"invagro/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestSalesExporter_Write(t *testing.T) {
	d := decimal.RequireFromString
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	rep := &core.SalesReport{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		BySource: []core.SourceTotal{
			{Source: "cash", Lines: 1, Quantity: 3, Amount: d("34.50")},
			{Source: "order", Lines: 1, Quantity: 2, Amount: d("20.70")},
		},
		ByDay:     []core.DayTotal{{Date: day, Quantity: 5, Amount: d("55.20")}},
		ByProduct: []core.ProductTotal{{ProductID: 1, ProductName: "Desparasitante Interno", Quantity: 5, Amount: d("55.20")}},
		Quantity:  5,
		Total:     d("55.20"),
	}

	var buf bytes.Buffer
	require.NoError(t, NewSalesExporter("Invagro", nil).Write(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, daySheet, productSheet}, f.GetSheetList())

	raw := excelize.Options{RawCellValue: true}
	get := func(sheet, cell string) string {
		v, err := f.GetCellValue(sheet, cell, raw)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Invagro", get(summarySheet, "A1"))
	assert.Equal(t, "Reporte de ventas del 2024-01-01 al 2024-01-31", get(summarySheet, "A2"))
	assert.Equal(t, "Facturas contado", get(summarySheet, "A5"))
	assert.Equal(t, "Pedidos", get(summarySheet, "A6"))
	assert.Equal(t, "Total", get(summarySheet, "A7"))
	assert.Equal(t, "55.2", get(summarySheet, "D7"))
	assert.Equal(t, "2024-01-10", get(daySheet, "A2"))
	assert.Equal(t, "Desparasitante Interno", get(productSheet, "B2"))
}

func TestSalesExporter_NilReport(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewSalesExporter("Invagro", nil).Write(&buf, nil))
}
