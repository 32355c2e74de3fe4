package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradeledger/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{svc: svc, jwtSecret: jwtSecret}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(Actor)

	r.Get("/api/health", h.health)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(4 << 20)) // order files and bank CSVs arrive inline

		r.Get("/api/auth/me", h.me)

		// Master data
		r.Get("/api/partners", h.apiListPartners)
		r.Get("/api/products", h.apiListProducts)

		// Order ingestion
		r.Post("/api/orders/parse", h.apiParseOrders)
		r.Post("/api/orders/commit", h.apiCommitOrders)
		r.Get("/api/orders/duplicates", h.apiCheckDuplicates)

		// Ledger
		r.Get("/api/transactions", h.apiListTransactions)
		r.Post("/api/transactions/confirmed-quantities", h.apiUpdateQuantities)

		// Aggregation and settlements
		r.Get("/api/aggregate", h.apiAggregate)
		r.Get("/api/settlements", h.apiListSettlements)
		r.Post("/api/settlements", h.apiSaveSettlement)
		r.Get("/api/settlements/{id}", h.apiSettlementDetail)
		r.Post("/api/settlements/{id}/unlock", h.apiUnlockSettlement)

		// Invoices
		r.Get("/api/invoices", h.apiListInvoices)
		r.Post("/api/invoices", h.apiCreateInvoice)
		r.Get("/api/invoices/check", h.apiCheckInvoiceExists)
		r.Post("/api/invoices/{id}/status", h.apiUpdateInvoiceStatus)

		// Payments
		r.Post("/api/payments/bank-statement", h.apiUploadBankStatement)
		r.Post("/api/payments/manual", h.apiRecordManualPayment)
		r.Get("/api/payments/alerts", h.apiOutstandingAlerts)

		// Monthly closing
		r.Get("/api/closings", h.apiListClosings)
		r.Post("/api/closings/{yearMonth}/execute", h.apiExecuteClosing)
		r.Post("/api/closings/{yearMonth}/unlock", h.apiUnlockClosing)

		// Dashboard
		r.Get("/api/dashboard", h.apiDashboardStats)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
