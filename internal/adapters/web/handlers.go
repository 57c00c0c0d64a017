package web

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"invagro/internal/app"
	"invagro/internal/core"
	"invagro/internal/metrics"
	"invagro/internal/ratelimit"
	webui "invagro/web"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Limiter throttles chat turns; *ratelimit.TokenBucket satisfies it, nil included.
type Limiter interface {
	Allow(ctx context.Context, key string) (*ratelimit.Result, error)
}

// Options carries the adapter settings that do not belong to the service layer.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	TokenTTL       time.Duration
	SecureCookies  bool
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Limiter        Limiter
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc           app.ApplicationService
	router        chi.Router
	logger        *zap.Logger
	metrics       *metrics.Metrics
	limiter       Limiter
	jwtSecret     string
	tokenTTL      time.Duration
	secureCookies bool
	fileServer    http.Handler
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	staticFS, err := fs.Sub(webui.Static, "static")
	if err != nil {
		panic("web/static embed sub-FS failed: " + err.Error())
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}

	h := &Handler{
		svc:           svc,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		limiter:       opts.Limiter,
		jwtSecret:     opts.JWTSecret,
		tokenTTL:      opts.TokenTTL,
		secureCookies: opts.SecureCookies,
		fileServer:    http.FileServer(http.FS(staticFS)),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.logger, h.metrics))
	r.Use(Recoverer(h.logger))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	r.Get("/", h.index)
	r.Get("/static/*", func(w http.ResponseWriter, req *http.Request) {
		http.StripPrefix("/static", h.fileServer).ServeHTTP(w, req)
	})

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20))

		r.Get("/api/auth/me", h.me)

		// Chat
		r.Post("/api/chat", h.chatMessage)
		r.Post("/api/chat/clear", h.chatClear)

		// Catalog
		r.Get("/api/clients", h.apiListClients)
		r.Get("/api/clients/{id}", h.apiGetClient)
		r.Get("/api/products", h.apiListProducts)
		r.Get("/api/categories", h.apiListCategories)

		// Invoices and credit
		r.Get("/api/invoices", h.apiListInvoices)
		r.Get("/api/invoices/{id}", h.apiGetInvoice)
		r.Get("/api/invoices/{id}/pdf", h.apiInvoicePDF)
		r.Get("/api/invoices/{id}/payments", h.apiListPayments)
		r.Get("/api/receivables", h.apiListReceivables)

		// Orders
		r.Get("/api/orders", h.apiListOrders)
		r.Get("/api/orders/{id}", h.apiGetOrder)

		// Reports
		r.Get("/api/dashboard", h.apiDashboard)
		r.Get("/api/reports/sales", h.apiSalesReport)
		r.Get("/api/reports/sales.xlsx", h.apiSalesReportXLSX)
		r.Get("/api/settings/invoice", h.apiInvoiceSettings)

		// Writes
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(writerRoles...))

			r.Post("/api/clients", h.apiCreateClient)
			r.Post("/api/products", h.apiCreateProduct)
			r.Post("/api/categories", h.apiCreateCategory)
			r.Post("/api/invoices", h.apiCreateInvoice)
			r.Post("/api/invoices/{id}/payments", h.apiRecordPayment)
			r.Post("/api/orders", h.apiCreateOrder)
			r.Post("/api/orders/{id}/deliver", h.apiDeliverOrder)
			r.Post("/api/orders/{id}/cancel", h.apiCancelOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(core.RoleAdmin))

			r.Post("/api/invoices/{id}/void", h.apiVoidInvoice)
			r.Put("/api/settings/invoice", h.apiSetInvoiceSettings)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// index serves the single-page chat client.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, webui.Static, "static/index.html")
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "el cuerpo de la solicitud es demasiado grande", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "JSON inválido: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// idParam parses the {id} URL parameter, writing 400 when it is not a positive integer.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "identificador inválido", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryInt returns the integer query parameter name, or 0 when absent or malformed.
func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
