package web

import (
	"net/http"
	"strconv"

	"tradeledger/internal/app"
	"tradeledger/internal/core"
)

// apiListPartners handles GET /api/partners?role=SUPPLIER|BUYER|BOTH.
func (h *Handler) apiListPartners(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPartners(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Partners)
}

// apiListProducts handles GET /api/products.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result.Products)
}

// apiParseOrders handles POST /api/orders/parse.
func (h *Handler) apiParseOrders(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if len(body.Header) == 0 {
		writeError(w, r, "header row is required", http.StatusBadRequest)
		return
	}

	result, err := h.svc.ParseOrders(r.Context(), app.ParseOrdersRequest{
		Header: body.Header,
		Rows:   body.Rows,
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeSuccess(w, result.Parse)
}

// apiCommitOrders handles POST /api/orders/commit. All-or-nothing: a batch
// with any invalid item writes zero rows and returns the itemized errors.
func (h *Handler) apiCommitOrders(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []core.ParsedOrderItem `json:"items"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if len(body.Items) == 0 {
		writeError(w, r, "at least one item is required", http.StatusBadRequest)
		return
	}

	result, err := h.svc.CommitOrders(r.Context(), app.CommitOrdersRequest{
		Items: body.Items,
		Actor: actorFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	if result.Commit.ErrorCount > 0 {
		// Validation rejected the batch: the {success:false} shape carries
		// the per-row errors.
		writeJSON(w, struct {
			Success bool     `json:"success"`
			Errors  []string `json:"errors"`
		}{Success: false, Errors: result.Commit.Errors})
		return
	}
	writeSuccess(w, result.Commit)
}

// apiCheckDuplicates handles GET /api/orders/duplicates?customer=X&date=YYYY-MM-DD.
func (h *Handler) apiCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	customer := r.URL.Query().Get("customer")
	if customer == "" {
		writeError(w, r, "customer is required", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CheckDuplicateOrders(r.Context(), customer, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w, result)
}

// apiListTransactions handles GET /api/transactions with filter query params.
func (h *Handler) apiListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.svc.ListTransactions(r.Context(), app.TransactionFilterRequest{
		Start:     q.Get("start"),
		End:       q.Get("end"),
		Supplier:  q.Get("supplier"),
		Buyer:     q.Get("buyer"),
		Brand:     q.Get("brand"),
		State:     q.Get("state"),
		OrderCode: q.Get("order_code"),
		Limit:     limit,
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, result.Lines)
}

// apiUpdateQuantities handles POST /api/transactions/confirmed-quantities.
// Partial success: failed lines are reported, successful ones stay updated.
func (h *Handler) apiUpdateQuantities(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Changes []core.ConfirmedQtyChange `json:"changes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if len(body.Changes) == 0 {
		writeError(w, r, "at least one change is required", http.StatusBadRequest)
		return
	}

	result, err := h.svc.UpdateConfirmedQuantities(r.Context(), app.UpdateQuantitiesRequest{
		Changes: body.Changes,
	})
	if err != nil {
		writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeSuccess(w, result)
}
