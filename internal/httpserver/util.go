package httpserver

import (
	"net/http"
	"net/mail"

	domainerrors "github.com/dummy-library/inventory-core/internal/errors"
)

// requireUserEmail extracts and validates the X-User-Email header, writing
// the appropriate 400 error and returning ok=false if it's missing or
// malformed.
func requireUserEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email := r.Header.Get("X-User-Email")
	if email == "" {
		domainerrors.Write(w, domainerrors.CodeUserEmailRequired, "X-User-Email header is required")
		return "", false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		domainerrors.Write(w, domainerrors.CodeInvalidEmail, "X-User-Email header is not a valid email address")
		return "", false
	}
	return email, true
}

// domainerrorsInternal writes the generic 500 envelope for unexpected
// failures that aren't already typed *domainerrors.DomainError.
func domainerrorsInternal(w http.ResponseWriter) {
	domainerrors.Write(w, domainerrors.CodeInternal, "internal error")
}
