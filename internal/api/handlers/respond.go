package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/query"
)

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps query errors to HTTP status codes. Anything else is an
// upstream failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dates.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrTickerNotFound), errors.Is(err, query.ErrNoBusinessDay):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
