package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tradeledger/internal/app"
)

// apiListInvoices handles GET /api/invoices with filter query params.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.ListInvoices(r.Context(), app.InvoiceFilterRequest{
		Status:  q.Get("status"),
		Company: q.Get("company"),
		Type:    q.Get("type"),
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Invoices)
}

// apiCreateInvoice handles POST /api/invoices. Either settlement_id or
// order_numbers selects the billing track.
func (h *Handler) apiCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SettlementID string   `json:"settlement_id"`
		OrderNumbers []string `json:"order_numbers"`
		Type         string   `json:"type"`
		Company      string   `json:"company"`
		InvoiceDate  string   `json:"invoice_date"`
		Amount       string   `json:"amount"`
		Notes        string   `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SettlementID == "" && len(body.OrderNumbers) == 0 {
		writeError(w, r, "either settlement_id or order_numbers is required", http.StatusBadRequest)
		return
	}

	amount := decimal.Zero
	if body.Amount != "" {
		var err error
		if amount, err = decimal.NewFromString(body.Amount); err != nil {
			writeError(w, r, "invalid amount: "+body.Amount, http.StatusBadRequest)
			return
		}
	}

	result, err := h.svc.CreateInvoice(r.Context(), app.CreateInvoiceRequest{
		SettlementID: body.SettlementID,
		OrderNumbers: body.OrderNumbers,
		Type:         body.Type,
		Company:      body.Company,
		InvoiceDate:  body.InvoiceDate,
		Amount:       amount,
		Notes:        body.Notes,
		Actor:        actorFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w, struct {
		InvoiceID string `json:"invoice_id"`
	}{result.InvoiceID})
}

// apiCheckInvoiceExists handles GET /api/invoices/check?order_number=X.
// Advisory lookup used to warn before double-invoicing an order code.
func (h *Handler) apiCheckInvoiceExists(w http.ResponseWriter, r *http.Request) {
	orderNumber := r.URL.Query().Get("order_number")
	if orderNumber == "" {
		writeError(w, r, "order_number is required", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CheckInvoiceExists(r.Context(), orderNumber)
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeSuccess(w, result)
}

// apiUpdateInvoiceStatus handles POST /api/invoices/{id}/status.
func (h *Handler) apiUpdateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Status == "" {
		writeError(w, r, "status is required", http.StatusBadRequest)
		return
	}

	err := h.svc.UpdateInvoiceStatus(r.Context(), app.UpdateInvoiceStatusRequest{
		InvoiceID: id,
		Status:    body.Status,
		Actor:     actorFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w, nil)
}
