package web

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes the {success:false, error} JSON shape every operation
// boundary converts its failures into.
func writeError(w http.ResponseWriter, r *http.Request, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// successResponse wraps a payload in the {success:true, ...} envelope.
// Warning carries a soft failure: the operation succeeded but a dependent
// step did not complete.
type successResponse struct {
	Success bool   `json:"success"`
	Warning string `json:"warning,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, successResponse{Success: true, Data: data})
}

func writeSuccessWarning(w http.ResponseWriter, data any, warning string) {
	writeJSON(w, successResponse{Success: true, Warning: warning, Data: data})
}
