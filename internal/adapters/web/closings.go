package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// apiListClosings handles GET /api/closings.
func (h *Handler) apiListClosings(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListClosings(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Closings)
}

// apiExecuteClosing handles POST /api/closings/{yearMonth}/execute.
func (h *Handler) apiExecuteClosing(w http.ResponseWriter, r *http.Request) {
	yearMonth := chi.URLParam(r, "yearMonth")

	result, err := h.svc.ExecuteClosing(r.Context(), yearMonth, actorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w, struct {
		ClosingID      string          `json:"closing_id"`
		PurchaseCount  int             `json:"purchase_count"`
		PurchaseAmount decimal.Decimal `json:"purchase_amount"`
		SalesCount     int             `json:"sales_count"`
		SalesAmount    decimal.Decimal `json:"sales_amount"`
	}{result.ClosingID, result.PurchaseCount, result.PurchaseAmount, result.SalesCount, result.SalesAmount})
}

// apiUnlockClosing handles POST /api/closings/{yearMonth}/unlock.
func (h *Handler) apiUnlockClosing(w http.ResponseWriter, r *http.Request) {
	yearMonth := chi.URLParam(r, "yearMonth")

	result, err := h.svc.UnlockClosing(r.Context(), yearMonth, actorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w, struct {
		UnlockedSettlements int `json:"unlocked_settlements"`
	}{result.UnlockedSettlements})
}

// apiDashboardStats handles GET /api/dashboard.
func (h *Handler) apiDashboardStats(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.DashboardStats(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, struct {
		Month             string          `json:"month"`
		LineCount         int             `json:"line_count"`
		PurchaseAmount    decimal.Decimal `json:"purchase_amount"`
		SupplyAmount      decimal.Decimal `json:"supply_amount"`
		MarginAmount      decimal.Decimal `json:"margin_amount"`
		OpenSettlements   int             `json:"open_settlements"`
		LockedSettlements int             `json:"locked_settlements"`
		UnpaidInvoices    int             `json:"unpaid_invoices"`
		OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	}{
		result.Month, result.LineCount, result.PurchaseAmount,
		result.SupplyAmount, result.MarginAmount, result.OpenSettlements,
		result.LockedSettlements, result.UnpaidInvoices, result.OutstandingAmount,
	})
}
