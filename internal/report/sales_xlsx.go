// Package report exports sales reports as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"invagro/internal/core"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	summarySheet = "Resumen"
	daySheet     = "Por día"
	productSheet = "Por producto"
)

var sourceLabels = map[string]string{
	"cash":   "Facturas contado",
	"credit": "Facturas crédito",
	"order":  "Pedidos",
}

// SalesExporter writes a core.SalesReport into an .xlsx workbook.
type SalesExporter struct {
	companyName string
	logger      *zap.Logger
}

func NewSalesExporter(companyName string, logger *zap.Logger) *SalesExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesExporter{companyName: companyName, logger: logger}
}

// Write streams the workbook to w.
func (e *SalesExporter) Write(w io.Writer, rep *core.SalesReport) error {
	f, err := e.build(rep)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveAs writes the workbook to path.
func (e *SalesExporter) SaveAs(path string, rep *core.SalesReport) error {
	f, err := e.build(rep)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	e.logger.Info("sales report exported", zap.String("path", path))
	return nil
}

func (e *SalesExporter) build(rep *core.SalesReport) (*excelize.File, error) {
	if rep == nil {
		return nil, fmt.Errorf("sales report is nil")
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{daySheet, productSheet} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	e.setCell(f, summarySheet, 1, 1, e.companyName)
	e.setCell(f, summarySheet, 1, 2, fmt.Sprintf("Reporte de ventas del %s al %s", date(rep.From), date(rep.To)))
	e.header(f, summarySheet, 4, bold, "Origen", "Líneas", "Cantidad", "Monto")
	row := 5
	for _, s := range rep.BySource {
		label := sourceLabels[s.Source]
		if label == "" {
			label = s.Source
		}
		e.setCell(f, summarySheet, 1, row, label)
		e.setCell(f, summarySheet, 2, row, s.Lines)
		e.setCell(f, summarySheet, 3, row, s.Quantity)
		e.setCell(f, summarySheet, 4, row, s.Amount.InexactFloat64())
		row++
	}
	e.setCell(f, summarySheet, 1, row, "Total")
	e.setCell(f, summarySheet, 3, row, rep.Quantity)
	e.setCell(f, summarySheet, 4, row, rep.Total.InexactFloat64())
	e.style(f, summarySheet, 1, row, 4, row, bold)
	e.style(f, summarySheet, 4, 5, 4, row, amount)

	e.header(f, daySheet, 1, bold, "Fecha", "Cantidad", "Monto")
	for i, d := range rep.ByDay {
		e.setCell(f, daySheet, 1, i+2, date(d.Date))
		e.setCell(f, daySheet, 2, i+2, d.Quantity)
		e.setCell(f, daySheet, 3, i+2, d.Amount.InexactFloat64())
	}
	e.style(f, daySheet, 3, 2, 3, len(rep.ByDay)+1, amount)

	e.header(f, productSheet, 1, bold, "Id", "Producto", "Cantidad", "Monto")
	for i, p := range rep.ByProduct {
		e.setCell(f, productSheet, 1, i+2, p.ProductID)
		e.setCell(f, productSheet, 2, i+2, p.ProductName)
		e.setCell(f, productSheet, 3, i+2, p.Quantity)
		e.setCell(f, productSheet, 4, i+2, p.Amount.InexactFloat64())
	}
	e.style(f, productSheet, 4, 2, 4, len(rep.ByProduct)+1, amount)
	if err := f.SetColWidth(productSheet, "B", "B", 40); err != nil {
		e.logger.Warn("failed to set column width", zap.Error(err))
	}

	return f, nil
}

func (e *SalesExporter) header(f *excelize.File, sheet string, row, style int, titles ...string) {
	for i, t := range titles {
		e.setCell(f, sheet, i+1, row, t)
	}
	e.style(f, sheet, 1, row, len(titles), row, style)
}

// setCell sets a cell value, logging instead of failing on bad coordinates.
func (e *SalesExporter) setCell(f *excelize.File, sheet string, col, row int, value any) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err == nil {
		err = f.SetCellValue(sheet, cell, value)
	}
	if err != nil {
		e.logger.Warn("failed to set cell value",
			zap.String("sheet", sheet),
			zap.Int("col", col),
			zap.Int("row", row),
			zap.Error(err))
	}
}

func (e *SalesExporter) style(f *excelize.File, sheet string, c1, r1, c2, r2, style int) {
	if r2 < r1 {
		return
	}
	from, err := excelize.CoordinatesToCellName(c1, r1)
	if err != nil {
		return
	}
	to, err := excelize.CoordinatesToCellName(c2, r2)
	if err != nil {
		return
	}
	if err := f.SetCellStyle(sheet, from, to, style); err != nil {
		e.logger.Warn("failed to set cell style", zap.String("sheet", sheet), zap.Error(err))
	}
}

func date(t time.Time) string {
	return t.Format("2006-01-02")
}
