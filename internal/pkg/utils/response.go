package utils

import (
	"encoding/json"
	"net/http"

	"github.com/fbos/fieldservice/internal/pkg/errors"
)

// ErrorResponse represents an error API response. The top-level "error"
// string keeps older clients that only read error messages working.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Detail *ErrorDetail `json:"detail,omitempty"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, data)
}

// WriteError writes an error JSON response from AppError
func WriteError(w http.ResponseWriter, err *errors.AppError) error {
	return WriteJSON(w, err.StatusCode, ErrorResponse{
		Error: err.Message,
		Detail: &ErrorDetail{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
	})
}

// WriteErr converts any error to an AppError and writes it
func WriteErr(w http.ResponseWriter, err error) error {
	return WriteError(w, errors.From(err))
}

// WriteErrorMessage writes a simple error message
func WriteErrorMessage(w http.ResponseWriter, status int, code, message string) error {
	return WriteJSON(w, status, ErrorResponse{
		Error: message,
		Detail: &ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
