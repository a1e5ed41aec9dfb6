package handlers

import (
	"encoding/json"
	"net/http"
)

// errorBody is the only shape an error response takes.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse writes {"error": code} with the given status.
// Details belong in the logs, never in the body.
func ErrorResponse(w http.ResponseWriter, statusCode int, code string) error {
	return WriteJSON(w, statusCode, errorBody{Error: code})
}

// WriteJSON writes data as a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
