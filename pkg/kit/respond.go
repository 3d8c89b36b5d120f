package kit

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Envelope is the wire shape every API response uses.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Errors    any    `json:"errors,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a successful envelope around data.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteError writes a failure envelope. errs carries field-level detail for
// validation failures and is omitted otherwise.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string, errs any) {
	WriteJSON(w, status, Envelope{
		Success:   false,
		Message:   msg,
		Errors:    errs,
		RequestID: chimw.GetReqID(r.Context()),
	})
}
