package httpserver

import (
	"net/http"

	"github.com/dummy-library/inventory-core/internal/money"
	"github.com/dummy-library/inventory-core/internal/store"
	"github.com/dummy-library/inventory-core/pkg/responders"
)

// adminLedger handles GET /api/admin/ledger: paginated wallet movement list.
func (h handlers) adminLedger(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	filter := store.MovementFilter{
		Kind:     r.URL.Query().Get("kind"),
		Page:     page,
		PageSize: pageSize,
	}

	movements, total, err := h.store.ListMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("list movements failed")
		domainerrorsInternal(w)
		return
	}

	balance, err := h.store.WalletBalance(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("wallet balance failed")
		domainerrorsInternal(w)
		return
	}
	h.metrics.WalletBalanceCents.Set(float64(balance))

	views := make([]movementView, 0, len(movements))
	for _, m := range movements {
		views = append(views, newMovementView(m))
	}

	responders.JSON(w, http.StatusOK, map[string]interface{}{
		"data":             views,
		"pagination":       store.NewPagination(total, page, pageSize),
		"balanceCents":     balance,
		"balanceFormatted": money.Formatted(balance),
	})
}

// adminJobs handles GET /api/admin/jobs: job list filtered by status.
func (h handlers) adminJobs(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	filter := store.JobFilter{
		Status:   store.JobStatus(r.URL.Query().Get("status")),
		Page:     page,
		PageSize: pageSize,
	}

	jobs, total, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("list jobs failed")
		domainerrorsInternal(w)
		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, newJobView(j))
	}

	responders.JSON(w, http.StatusOK, map[string]interface{}{
		"data":       views,
		"pagination": store.NewPagination(total, page, pageSize),
	})
}

// adminStream handles GET /api/admin/stream: a websocket feed of job
// state transitions, pushed live by the job runner via h.hub.
func (h handlers) adminStream(w http.ResponseWriter, r *http.Request) {
	h.hub.serveWS(w, r)
}
