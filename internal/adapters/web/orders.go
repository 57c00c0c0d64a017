package web

import (
	"context"
	"net/http"

	"invagro/internal/app"
)

// apiListOrders handles GET /api/orders?status=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	var statusPtr *string
	if statusFilter != "" {
		statusPtr = &statusFilter
	}
	result, err := h.svc.ListOrders(r.Context(), statusPtr)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// apiGetOrder handles GET /api/orders/{id}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiCreateOrder handles POST /api/orders.
// Body: { client_id, order_date?, notes?, lines: [{product_id, quantity, unit_discount?}] }
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req app.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ClientID <= 0 {
		writeError(w, r, "client_id es requerido", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	req.UserID = userIDPtr(r)

	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, result.Order)
}

// apiDeliverOrder handles POST /api/orders/{id}/deliver.
func (h *Handler) apiDeliverOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, h.svc.DeliverOrder)
}

// apiCancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) apiCancelOrder(w http.ResponseWriter, r *http.Request) {
	h.transitionOrder(w, r, h.svc.CancelOrder)
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int) (*app.OrderResult, error)) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := fn(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}
