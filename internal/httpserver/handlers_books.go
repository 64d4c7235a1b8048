package httpserver

import (
	"net/http"

	"github.com/dummy-library/inventory-core/internal/store"
	"github.com/dummy-library/inventory-core/pkg/responders"
)

// listBooks handles GET /api/books: title/author/genre substring filters
// plus pagination, served through the TTL-cached catalog reader.
func (h handlers) listBooks(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	filter := store.BookFilter{
		Title:    r.URL.Query().Get("title"),
		Author:   r.URL.Query().Get("author"),
		Genre:    r.URL.Query().Get("genre"),
		Page:     page,
		PageSize: pageSize,
	}

	books, total, err := h.catalog.ListBooks(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("list books failed")
		domainerrorsInternal(w)
		return
	}

	views := make([]bookView, 0, len(books))
	for _, b := range books {
		views = append(views, newBookView(b))
	}

	responders.JSON(w, http.StatusOK, map[string]interface{}{
		"data":       views,
		"pagination": store.NewPagination(total, page, pageSize),
	})
}
