// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	internalErrors "github.com/tumbleweedd/fulfillment_pipeline/internal/lib/errors"
)

type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, status int, body Envelope) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, status int, data any) error {
	return JSON(w, status, Envelope{Success: true, Data: data})
}

func Fail(w http.ResponseWriter, status int, err error) error {
	return JSON(w, status, Envelope{Success: false, Error: err.Error()})
}

// StatusFor maps domain errors to HTTP statuses. Anything unknown is a 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, internalErrors.ErrInvalidEvent),
		errors.Is(err, internalErrors.ErrInvalidFilter),
		errors.Is(err, internalErrors.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, internalErrors.ErrUnknownStage):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
