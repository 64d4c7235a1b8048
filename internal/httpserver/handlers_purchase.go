package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/dummy-library/inventory-core/internal/errors"
	"github.com/dummy-library/inventory-core/pkg/responders"
)

// buyBook handles POST /api/books/:isbn/buy, wrapped by idempotencyMiddleware.
func (h handlers) buyBook(w http.ResponseWriter, r *http.Request) {
	userEmail, ok := requireUserEmail(w, r)
	if !ok {
		return
	}
	isbn := chi.URLParam(r, "isbn")

	result, err := h.purchaseEngine.Buy(r.Context(), userEmail, isbn)
	if err != nil {
		h.writePurchaseError(w, "buy", err)
		return
	}
	h.metrics.PurchasesTotal.WithLabelValues("buy", "success").Inc()
	responders.JSON(w, http.StatusOK, newPurchaseView(result.Purchase, result.IsExisting))
}

// cancelPurchase handles POST /api/purchases/:id/cancel.
func (h handlers) cancelPurchase(w http.ResponseWriter, r *http.Request) {
	userEmail, ok := requireUserEmail(w, r)
	if !ok {
		return
	}
	purchaseID := chi.URLParam(r, "id")

	result, err := h.purchaseEngine.Cancel(r.Context(), userEmail, purchaseID)
	if err != nil {
		h.writePurchaseError(w, "cancel", err)
		return
	}
	h.metrics.PurchasesTotal.WithLabelValues("cancel", "success").Inc()
	responders.JSON(w, http.StatusOK, newPurchaseView(result.Purchase, result.IsExisting))
}

func (h handlers) writePurchaseError(w http.ResponseWriter, operation string, err error) {
	if de, ok := domainerrors.As(err); ok {
		h.metrics.PurchasesTotal.WithLabelValues(operation, string(de.Code)).Inc()
		domainerrors.WriteJSON(w, de)
		return
	}
	h.logger.Error().Err(err).Str("operation", operation).Msg("engine operation failed")
	domainerrorsInternal(w)
}
