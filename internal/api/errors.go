package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-zwave/internal/bridges/zwave"
	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeUnavailable  = "service_unavailable"
	ErrCodeUnknownValue = "unknown_value"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnavailable writes a 503 error response.
func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeValueError maps a manager value error to a response.
func writeValueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ozw.ErrNoManager):
		writeUnavailable(w, err.Error())
	case errors.Is(err, ozw.ErrWrongType), errors.Is(err, ozw.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, ozw.ErrRejected):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, ozw.ErrUnavailable):
		writeError(w, http.StatusNotFound, ErrCodeUnknownValue, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

// writeBridgeError maps a bridge request failure to a response.
func writeBridgeError(w http.ResponseWriter, err error) {
	var status int
	switch zwave.ErrorCode(err) {
	case zwave.ErrCodeInvalidParameters, zwave.ErrCodeInvalidCommand:
		status = http.StatusBadRequest
	case zwave.ErrCodeDeviceUnreachable:
		status = http.StatusNotFound
	case zwave.ErrCodeRejected:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}
	if errors.Is(err, zwave.ErrNotStarted) {
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, zwave.ErrorCode(err), err.Error())
}
