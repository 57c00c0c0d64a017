package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// apiDashboard handles GET /api/dashboard.
func (h *Handler) apiDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetDashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, stats)
}

// apiSalesReport handles GET /api/reports/sales?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Both empty means the current month.
func (h *Handler) apiSalesReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rep, err := h.svc.GetSalesReport(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, rep)
}

// apiSalesReportXLSX handles GET /api/reports/sales.xlsx. The workbook is
// buffered so a failure can still be reported as JSON.
func (h *Handler) apiSalesReportXLSX(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")

	var buf bytes.Buffer
	if err := h.svc.ExportSalesReport(r.Context(), from, to, &buf); err != nil {
		h.fail(w, r, err)
		return
	}
	name := "ventas.xlsx"
	if from != "" && to != "" {
		name = fmt.Sprintf("ventas_%s_%s.xlsx", from, to)
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write sales workbook", zap.Error(err))
	}
}

// apiInvoiceSettings handles GET /api/settings/invoice.
func (h *Handler) apiInvoiceSettings(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetInvoiceSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiSetInvoiceSettings handles PUT /api/settings/invoice. Body: { authorized_range, cai? }
func (h *Handler) apiSetInvoiceSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AuthorizedRange string `json:"authorized_range"`
		CAI             string `json:"cai"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.SetAuthorizedRange(r.Context(), body.AuthorizedRange, body.CAI)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, res)
}
