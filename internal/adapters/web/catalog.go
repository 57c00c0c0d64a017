package web

import (
	"net/http"

	"invagro/internal/app"
)

// apiListClients handles GET /api/clients?q=.
func (h *Handler) apiListClients(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListClients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result.Clients)
}

// apiGetClient handles GET /api/clients/{id}.
func (h *Handler) apiGetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	client, err := h.svc.GetClient(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, client)
}

// apiCreateClient handles POST /api/clients.
func (h *Handler) apiCreateClient(w http.ResponseWriter, r *http.Request) {
	var req app.CreateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	client, err := h.svc.CreateClient(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, client)
}

// apiListProducts handles GET /api/products?all=1.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context(), r.URL.Query().Get("all") == "1")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, result.Products)
}

// apiCreateProduct handles POST /api/products.
func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req app.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, product)
}

func (h *Handler) apiListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, categories)
}

func (h *Handler) apiCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	category, err := h.svc.CreateCategory(r.Context(), body.Name, body.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCreated(w, category)
}
