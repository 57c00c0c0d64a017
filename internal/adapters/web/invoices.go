package web

import (
	"fmt"
	"net/http"
	"strconv"

	"invagro/internal/app"

	"go.uber.org/zap"
)

// apiListInvoices handles GET /api/invoices?kind=&status=&client_id=&from=&to=&limit=.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.ListInvoices(r.Context(), app.ListInvoicesRequest{
		Kind:     q.Get("kind"),
		Status:   q.Get("status"),
		ClientID: queryInt(r, "client_id"),
		FromDate: q.Get("from"),
		ToDate:   q.Get("to"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result.Invoices)
}

// apiGetInvoice handles GET /api/invoices/{id}.
func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result.Invoice)
}

// apiCreateInvoice handles POST /api/invoices.
// Body: { kind, client_id, payment, notes?, lines: [{product_id, quantity, unit_discount?}] }
func (h *Handler) apiCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = userIDPtr(r)

	result, err := h.svc.CreateInvoice(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, result.Invoice)
}

// apiVoidInvoice handles POST /api/invoices/{id}/void.
func (h *Handler) apiVoidInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.VoidInvoice(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result.Invoice)
}

// apiInvoicePDF handles GET /api/invoices/{id}/pdf.
func (h *Handler) apiInvoicePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	doc, name, err := h.svc.RenderInvoicePDF(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	if _, err := w.Write(doc); err != nil {
		h.logger.Warn("failed to write invoice pdf", zap.Int("invoice_id", id), zap.Error(err))
	}
}

// apiRecordPayment handles POST /api/invoices/{id}/payments. Body: { amount, note? }
func (h *Handler) apiRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req app.CreditPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.InvoiceID = id
	req.UserID = userIDPtr(r)

	result, err := h.svc.RecordCreditPayment(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, result.Invoice)
}

// apiListPayments handles GET /api/invoices/{id}/payments.
func (h *Handler) apiListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	payments, err := h.svc.ListCreditPayments(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, payments)
}

// apiListReceivables handles GET /api/receivables.
func (h *Handler) apiListReceivables(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListReceivables(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result.Receivables)
}
