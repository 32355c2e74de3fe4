package web

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"tradeledger/internal/app"
)

// apiUploadBankStatement handles POST /api/payments/bank-statement.
// The body carries the raw CSV text; matched deposits are applied to
// open invoices immediately.
func (h *Handler) apiUploadBankStatement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CSVText         string `json:"csv_text"`
		AmountTolerance string `json:"amount_tolerance"`
		DateTolerance   *int   `json:"date_tolerance"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.CSVText == "" {
		writeError(w, r, "csv_text is required", http.StatusBadRequest)
		return
	}

	req := app.UploadBankStatementRequest{CSVText: body.CSVText}
	if body.AmountTolerance != "" {
		tol, err := decimal.NewFromString(body.AmountTolerance)
		if err != nil {
			writeError(w, r, "invalid amount_tolerance: "+body.AmountTolerance, http.StatusBadRequest)
			return
		}
		req.AmountTolerance = tol
	}
	if body.DateTolerance != nil {
		req.DateTolerance = *body.DateTolerance
		req.DateToleranceSet = true
	}

	result, err := h.svc.UploadBankStatement(r.Context(), req)
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w, result)
}

// apiRecordManualPayment handles POST /api/payments/manual.
func (h *Handler) apiRecordManualPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InvoiceID string `json:"invoice_id"`
		Amount    string `json:"amount"`
		PaidDate  string `json:"paid_date"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.InvoiceID == "" {
		writeError(w, r, "invoice_id is required", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, r, "invalid amount: "+body.Amount, http.StatusBadRequest)
		return
	}

	err = h.svc.RecordManualPayment(r.Context(), app.ManualPaymentRequest{
		InvoiceID: body.InvoiceID,
		Amount:    amount,
		PaidDate:  body.PaidDate,
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w, nil)
}

// apiOutstandingAlerts handles GET /api/payments/alerts?days=N.
func (h *Handler) apiOutstandingAlerts(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, "invalid days: "+raw, http.StatusBadRequest)
			return
		}
		days = n
	}

	result, err := h.svc.OutstandingAlerts(r.Context(), days)
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Alerts)
}
