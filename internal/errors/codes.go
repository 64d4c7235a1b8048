// Package errors defines the machine-readable error codes returned by the
// HTTP surface and the disposition rules that map them to status codes.
package errors

// Code is a machine-readable error identifier returned to API clients.
type Code string

// Domain errors (engines).
const (
	CodeBookNotFound              Code = "BOOK_NOT_FOUND"
	CodeBorrowNotFound            Code = "BORROW_NOT_FOUND"
	CodePurchaseNotFound          Code = "PURCHASE_NOT_FOUND"
	CodeUserNotFound              Code = "USER_NOT_FOUND"
	CodeNoCopiesAvailable         Code = "NO_COPIES_AVAILABLE"
	CodeBorrowLimitExceeded       Code = "BORROW_LIMIT_EXCEEDED"
	CodeBookBuyLimitExceeded      Code = "BOOK_BUY_LIMIT_EXCEEDED"
	CodeTotalBuyLimitExceeded     Code = "TOTAL_BUY_LIMIT_EXCEEDED"
	CodeCancellationWindowExpired Code = "CANCELLATION_WINDOW_EXPIRED"
)

// Request/transport errors.
const (
	CodeUserEmailRequired      Code = "USER_EMAIL_REQUIRED"
	CodeIdempotencyKeyRequired Code = "IDEMPOTENCY_KEY_REQUIRED"
	CodeInvalidEmail           Code = "INVALID_EMAIL"
	CodeForbidden              Code = "FORBIDDEN"
	CodeInvalidField           Code = "INVALID_FIELD"
)

// Infrastructure errors.
const (
	CodeSerializationFailure Code = "SERIALIZATION_FAILURE"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Job handler errors. These never reach an HTTP client directly; they are
// recorded as Job.lastError and drive the runner's retry/backoff decision.
const (
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
)

// HTTPStatus returns the status code this error should be surfaced with,
// per the disposition table in spec §7.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeBookNotFound, CodeBorrowNotFound, CodePurchaseNotFound, CodeUserNotFound:
		return 404
	case CodeNoCopiesAvailable, CodeBorrowLimitExceeded, CodeBookBuyLimitExceeded, CodeTotalBuyLimitExceeded:
		return 409
	case CodeCancellationWindowExpired, CodeUserEmailRequired, CodeIdempotencyKeyRequired, CodeInvalidEmail, CodeInvalidField:
		return 400
	case CodeForbidden:
		return 403
	case CodeSerializationFailure:
		return 500
	default:
		return 500
	}
}
