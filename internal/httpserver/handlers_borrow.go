package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/dummy-library/inventory-core/internal/errors"
	"github.com/dummy-library/inventory-core/pkg/responders"
)

// borrowBook handles POST /api/books/:isbn/borrow.
func (h handlers) borrowBook(w http.ResponseWriter, r *http.Request) {
	userEmail, ok := requireUserEmail(w, r)
	if !ok {
		return
	}
	isbn := chi.URLParam(r, "isbn")

	result, err := h.borrowEngine.Borrow(r.Context(), userEmail, isbn)
	if err != nil {
		h.writeEngineError(w, "borrow", err)
		return
	}
	h.metrics.BorrowsTotal.WithLabelValues("borrow", "success").Inc()
	responders.JSON(w, http.StatusOK, newBorrowView(result.Borrow, result.IsExisting))
}

// returnBook handles POST /api/books/:isbn/return.
func (h handlers) returnBook(w http.ResponseWriter, r *http.Request) {
	userEmail, ok := requireUserEmail(w, r)
	if !ok {
		return
	}
	isbn := chi.URLParam(r, "isbn")

	result, err := h.borrowEngine.Return(r.Context(), userEmail, isbn)
	if err != nil {
		h.writeEngineError(w, "return", err)
		return
	}
	h.metrics.BorrowsTotal.WithLabelValues("return", "success").Inc()
	responders.JSON(w, http.StatusOK, newBorrowView(result.Borrow, result.IsExisting))
}

// writeEngineError writes a typed domain error, recording a metrics outcome
// for the engine operation along the way. Unexpected errors are logged and
// surfaced as a generic 500.
func (h handlers) writeEngineError(w http.ResponseWriter, operation string, err error) {
	if de, ok := domainerrors.As(err); ok {
		h.metrics.BorrowsTotal.WithLabelValues(operation, string(de.Code)).Inc()
		domainerrors.WriteJSON(w, de)
		return
	}
	h.logger.Error().Err(err).Str("operation", operation).Msg("engine operation failed")
	domainerrorsInternal(w)
}
