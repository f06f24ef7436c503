// Package httpx renders the JSON envelope used across the API:
// {"ok": true, "data": ...} on success, {"ok": false, "error": ...} otherwise.
package httpx

import (
	"encoding/json"
	"net/http"
)

type successEnvelope struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type errorEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// OK sends a success envelope with the given status code.
func OK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{OK: true, Data: data})
}

// Fail sends an error envelope with the given status code.
func Fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{OK: false, Error: message})
}

// DecodeJSON decodes the request body into target, rejecting unknown fields.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
