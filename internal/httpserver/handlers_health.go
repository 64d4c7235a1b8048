package httpserver

import (
	"net/http"

	"github.com/dummy-library/inventory-core/pkg/responders"
)

// health handles GET /health, probing the store through the circuit
// breaker so a flapping database reports 503 instead of hanging requests.
func (h handlers) health(w http.ResponseWriter, r *http.Request) {
	err := h.breaker.Execute(func() error {
		_, err := h.store.WalletBalance(r.Context())
		return err
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("breakerState", h.breaker.State()).Msg("health check failed")
		responders.JSON(w, http.StatusServiceUnavailable, map[string]interface{}{"ok": false})
		return
	}
	responders.JSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
