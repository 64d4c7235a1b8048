package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListBooks(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	rec := httptest.NewRecorder()

	h.listBooks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data []bookView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("expected 1 book, got %d", len(body.Data))
	}
	if body.Data[0].ISBN != testBookISBN {
		t.Errorf("expected isbn %s, got %s", testBookISBN, body.Data[0].ISBN)
	}
	if body.Data[0].SellFormatted == "" {
		t.Error("expected sellFormatted to be populated")
	}
}

func TestListBooksFilterByTitle(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/books?title=nonexistent", nil)
	rec := httptest.NewRecorder()

	h.listBooks(rec, req)

	var body struct {
		Data []bookView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 0 {
		t.Errorf("expected no matches, got %d", len(body.Data))
	}
}
