package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

// DomainError is a typed error carrying the machine-readable code that
// maps it to an HTTP status, matching the throw-typed-error discipline
// the teacher's source uses for 404/409/400 conditions.
type DomainError struct {
	Code    Code
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// New constructs a DomainError.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// As extracts a *DomainError from err, if present.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Response is the standardized error envelope returned to clients:
// {"error":{"code":"...","message":"..."}}
type Response struct {
	Error Detail `json:"error"`
}

// Detail carries the error code and message.
type Detail struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes err as the standard JSON error envelope.
func WriteJSON(w http.ResponseWriter, err error) {
	de, ok := As(err)
	if !ok {
		de = New(CodeInternal, err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(de.Code.HTTPStatus())
	_ = json.NewEncoder(w).Encode(Response{Error: Detail{Code: de.Code, Message: de.Message}})
}

// Write writes a code/message pair directly without an intermediate error value.
func Write(w http.ResponseWriter, code Code, message string) {
	WriteJSON(w, New(code, message))
}
