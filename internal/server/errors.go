package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an API failure class.
type Code string

const (
	CodeWSDisabled          Code = "WS_DISABLED"
	CodeInvalidRequest      Code = "INVALID_REQUEST"
	CodeNotFound            Code = "NOT_FOUND"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeInternal            Code = "INTERNAL"
)

// Error is an API failure carrying its code and HTTP status.
type Error struct {
	Code    Code
	Message string
	Status  int
	Details any
	Cause   error
}

// NewError creates an Error.
func NewError(code Code, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// WrapError creates an Error around cause.
func WrapError(code Code, status int, message string, cause error) *Error {
	return &Error{Code: code, Status: status, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorBody struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// writeSuccess writes {"success":true,"data":...}.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successEnvelope{Success: true, Data: data})
}

// writeError writes {"success":false,"error":{...}} with the error's status.
// Errors that are not *Error become 500 INTERNAL.
func writeError(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = WrapError(CodeInternal, http.StatusInternalServerError, "Internal server error", err)
	}
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, errorEnvelope{
		Success: false,
		Error: errorBody{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
