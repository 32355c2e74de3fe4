package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradeledger/internal/app"
	"tradeledger/internal/core"
)

// apiAggregate handles GET /api/aggregate?type=PURCHASE&partner=X&start=...&end=...
func (h *Handler) apiAggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.Aggregate(r.Context(), app.AggregateRequest{
		Type:    q.Get("type"),
		Partner: q.Get("partner"),
		Start:   q.Get("start"),
		End:     q.Get("end"),
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w, result.Aggregation)
}

// apiListSettlements handles GET /api/settlements with filter query params.
func (h *Handler) apiListSettlements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.ListSettlements(r.Context(), app.SettlementFilterRequest{
		Type:    q.Get("type"),
		Partner: q.Get("partner"),
		Status:  q.Get("status"),
		Month:   q.Get("month"),
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Settlements)
}

// apiSaveSettlement handles POST /api/settlements. A save with status
// CONFIRMED also moves the covered ledger lines to SETTLED; if that second
// step fails the response is still success, with a warning attached.
func (h *Handler) apiSaveSettlement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type    string                `json:"type"`
		Partner string                `json:"partner"`
		Start   string                `json:"start"`
		End     string                `json:"end"`
		Status  string                `json:"status"`
		Notes   string                `json:"notes"`
		Items   []core.AggregatedItem `json:"items"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Partner == "" {
		writeError(w, r, "partner is required", http.StatusBadRequest)
		return
	}

	result, err := h.svc.SaveSettlement(r.Context(), app.SaveSettlementRequest{
		Type:    body.Type,
		Partner: body.Partner,
		Start:   body.Start,
		End:     body.End,
		Status:  body.Status,
		Notes:   body.Notes,
		Items:   body.Items,
		Actor:   actorFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	payload := struct {
		SettlementID string `json:"settlement_id"`
		UpdatedLines int    `json:"updated_lines"`
	}{result.SettlementID, result.UpdatedLines}

	if result.Warning != "" {
		writeSuccessWarning(w, payload, result.Warning)
		return
	}
	writeSuccess(w, payload)
}

// apiSettlementDetail handles GET /api/settlements/{id}.
func (h *Handler) apiSettlementDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.svc.GetSettlementDetail(r.Context(), id)
	if err != nil {
		writeError(w, r, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

// apiUnlockSettlement handles POST /api/settlements/{id}/unlock.
func (h *Handler) apiUnlockSettlement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Type string `json:"type"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.UnlockSettlement(r.Context(), id, body.Type)
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w, struct {
		UpdatedRows int `json:"updated_rows"`
	}{result.UpdatedRows})
}
