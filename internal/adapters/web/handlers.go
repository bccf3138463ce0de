package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"hotel-inventory/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc           app.ApplicationService
	router        chi.Router
	jwtSecret     string
	secureCookies bool
	logger        *zap.Logger
}

// Options configures NewHandler.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	// SecureCookies sets the Secure flag on the auth cookie. Enable outside local development.
	SecureCookies bool
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options, logger *zap.Logger) http.Handler {
	h := &Handler{
		svc:           svc,
		jwtSecret:     opts.JWTSecret,
		secureCookies: opts.SecureCookies,
		logger:        logger,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ───────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Get("/api/schemas/{name}", h.schema)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// ── Catalog ──────────────────────────────────────────────────────────
		r.With(h.can(app.ModuleCatalog, app.ActionView)).Get("/api/items", h.apiListItems)
		r.With(h.can(app.ModuleCatalog, app.ActionCreate)).Post("/api/items", h.apiCreateItem)
		r.With(h.can(app.ModuleCatalog, app.ActionView)).Get("/api/items/{ref}", h.apiGetItem)
		r.With(h.can(app.ModuleCatalog, app.ActionEdit)).Patch("/api/items/{id}", h.apiUpdateItem)
		r.With(h.can(app.ModuleCatalog, app.ActionDelete)).Delete("/api/items/{id}", h.apiDeactivateItem)

		r.With(h.can(app.ModuleCatalog, app.ActionView)).Get("/api/categories", h.apiListCategories)
		r.With(h.can(app.ModuleCatalog, app.ActionCreate)).Post("/api/categories", h.apiCreateCategory)
		r.With(h.can(app.ModuleCatalog, app.ActionEdit)).Put("/api/categories/{id}/parent", h.apiSetCategoryParent)

		r.With(h.can(app.ModuleCatalog, app.ActionView)).Get("/api/locations", h.apiListLocations)
		r.With(h.can(app.ModuleCatalog, app.ActionCreate)).Post("/api/locations", h.apiCreateLocation)
		r.With(h.can(app.ModuleCatalog, app.ActionView)).Get("/api/locations/{id}", h.apiGetLocation)
		r.With(h.can(app.ModuleCatalog, app.ActionEdit)).Put("/api/locations/{id}/parent", h.apiSetLocationParent)
		r.With(h.can(app.ModuleCatalog, app.ActionDelete)).Delete("/api/locations/{id}", h.apiDeactivateLocation)

		r.With(h.can(app.ModuleVendors, app.ActionView)).Get("/api/vendors", h.apiListVendors)
		r.With(h.can(app.ModuleVendors, app.ActionCreate)).Post("/api/vendors", h.apiCreateVendor)
		r.With(h.can(app.ModuleVendors, app.ActionView)).Get("/api/vendors/{ref}", h.apiGetVendor)

		// ── Stock ledger ─────────────────────────────────────────────────────
		r.With(h.can(app.ModuleStock, app.ActionView)).Get("/api/stock", h.apiListStock)
		r.With(h.can(app.ModuleStock, app.ActionView)).Get("/api/stock/{itemID}/{locationID}", h.apiGetStockLevel)
		r.With(h.can(app.ModuleStock, app.ActionCreate)).Post("/api/stock/transfer", h.apiTransfer)
		r.With(h.can(app.ModuleStock, app.ActionCreate)).Post("/api/stock/issue", h.apiIssue)
		r.With(h.can(app.ModuleReceiving, app.ActionCreate)).Post("/api/stock/receive", h.apiReceive)
		r.With(h.can(app.ModuleStock, app.ActionEdit)).Post("/api/stock/adjust", h.apiAdjust)
		r.With(h.can(app.ModuleStock, app.ActionCreate)).Post("/api/stock/reserve", h.apiReserve)
		r.With(h.can(app.ModuleStock, app.ActionCreate)).Post("/api/stock/release", h.apiRelease)
		r.With(h.can(app.ModuleStock, app.ActionEdit)).Put("/api/stock/par", h.apiSetPar)
		r.With(h.can(app.ModuleStock, app.ActionView)).Get("/api/transactions", h.apiListTransactions)

		// ── Requisitions ─────────────────────────────────────────────────────
		r.With(h.can(app.ModuleRequisitions, app.ActionView)).Get("/api/requisitions", h.apiListRequisitions)
		r.With(h.can(app.ModuleRequisitions, app.ActionCreate)).Post("/api/requisitions", h.apiCreateRequisition)
		r.With(h.can(app.ModuleRequisitions, app.ActionView)).Get("/api/requisitions/{id}", h.apiGetRequisition)
		r.With(h.can(app.ModuleRequisitions, app.ActionApprove)).Post("/api/requisitions/{id}/approve", h.apiApproveRequisition)
		r.With(h.can(app.ModuleRequisitions, app.ActionApprove)).Post("/api/requisitions/{id}/deny", h.apiDenyRequisition)
		r.With(h.can(app.ModuleRequisitions, app.ActionEdit)).Post("/api/requisitions/{id}/pick", h.apiPickRequisition)
		r.With(h.can(app.ModuleRequisitions, app.ActionEdit)).Post("/api/requisitions/{id}/complete", h.apiCompleteRequisition)
		r.With(h.can(app.ModuleRequisitions, app.ActionEdit)).Post("/api/requisitions/{id}/cancel", h.apiCancelRequisition)

		// ── Counts ───────────────────────────────────────────────────────────
		r.With(h.can(app.ModuleCounts, app.ActionView)).Get("/api/counts", h.apiListCounts)
		r.With(h.can(app.ModuleCounts, app.ActionCreate)).Post("/api/counts", h.apiStartCount)
		r.With(h.can(app.ModuleCounts, app.ActionView)).Get("/api/counts/{id}", h.apiGetCount)
		r.With(h.can(app.ModuleCounts, app.ActionEdit)).Post("/api/counts/{id}/lines", h.apiAddCountLine)
		r.With(h.can(app.ModuleCounts, app.ActionEdit)).Post("/api/counts/{id}/complete", h.apiCompleteCount)
		r.With(h.can(app.ModuleCounts, app.ActionEdit)).Post("/api/counts/{id}/cancel", h.apiCancelCount)
		r.With(h.can(app.ModuleCounts, app.ActionApprove)).Post("/api/counts/{id}/apply", h.apiApplyCount)

		// ── Purchase requests ────────────────────────────────────────────────
		r.With(h.can(app.ModuleReceiving, app.ActionView)).Get("/api/purchase-requests", h.apiListPurchaseRequests)
		r.With(h.can(app.ModuleReceiving, app.ActionCreate)).Post("/api/purchase-requests", h.apiCreatePurchaseRequest)
		r.With(h.can(app.ModuleReceiving, app.ActionView)).Get("/api/purchase-requests/{id}", h.apiGetPurchaseRequest)
		r.With(h.can(app.ModuleReceiving, app.ActionCreate)).Post("/api/purchase-requests/{id}/submit", h.apiSubmitPurchaseRequest)
		r.With(h.can(app.ModuleReceiving, app.ActionApprove)).Post("/api/purchase-requests/{id}/approve", h.apiApprovePurchaseRequest)
		r.With(h.can(app.ModuleReceiving, app.ActionApprove)).Post("/api/purchase-requests/{id}/deny", h.apiDenyPurchaseRequest)
		r.With(h.can(app.ModuleReceiving, app.ActionEdit)).Post("/api/purchase-requests/{id}/cancel", h.apiCancelPurchaseRequest)
		r.With(h.can(app.ModuleReceiving, app.ActionEdit)).Post("/api/purchase-requests/{id}/order", h.apiOrderPurchaseRequest)
		r.With(h.can(app.ModuleReceiving, app.ActionCreate)).Post("/api/purchase-requests/{id}/receive", h.apiReceivePurchaseRequest)

		// ── Reports ──────────────────────────────────────────────────────────
		r.With(h.can(app.ModuleReports, app.ActionView)).Get("/api/reports/alerts", h.apiParAlerts)
		r.With(h.can(app.ModuleReports, app.ActionView)).Get("/api/reports/on-hand", h.apiListOnHand)
		r.With(h.can(app.ModuleReports, app.ActionView)).Get("/api/reports/on-hand/{itemID}", h.apiGetOnHand)
		r.With(h.can(app.ModuleReports, app.ActionView)).Get("/api/reports/suggestions", h.apiSuggestOrders)
		r.With(h.can(app.ModuleReports, app.ActionView)).Get("/api/reports/projection", h.apiProjection)
	})

	h.router = r
	return r
}

// health reports database and cache reachability.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	res := h.svc.Health(r.Context())
	if res.Status != "ok" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(res)
		return
	}
	writeJSON(w, res)
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathInt parses the named URL parameter as a positive int, writing 400 on failure.
func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n <= 0 {
		writeError(w, r, "invalid "+name, "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// queryInt parses an optional integer query parameter, writing 400 on failure.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, "invalid "+name+": must be an integer", "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	return &n, true
}

// queryTime parses an optional RFC 3339 timestamp or YYYY-MM-DD date.
func queryTime(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	writeError(w, r, "invalid "+name+": use RFC 3339 or YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
	return nil, false
}
