package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newISBNRequest(method, path, isbn, userEmail string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if userEmail != "" {
		req.Header.Set("X-User-Email", userEmail)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("isbn", isbn)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestBorrowBookMissingEmail(t *testing.T) {
	h := newTestHandlers(t)

	req := newISBNRequest(http.MethodPost, "/api/books/"+testBookISBN+"/borrow", testBookISBN, "")
	rec := httptest.NewRecorder()

	h.borrowBook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBorrowAndReturnBook(t *testing.T) {
	h := newTestHandlers(t)

	borrowReq := newISBNRequest(http.MethodPost, "/api/books/"+testBookISBN+"/borrow", testBookISBN, "reader@example.com")
	rec := httptest.NewRecorder()
	h.borrowBook(rec, borrowReq)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var borrowed borrowView
	if err := json.Unmarshal(rec.Body.Bytes(), &borrowed); err != nil {
		t.Fatalf("decode borrow response: %v", err)
	}
	if borrowed.Status != "ACTIVE" {
		t.Errorf("expected status ACTIVE, got %s", borrowed.Status)
	}

	returnReq := newISBNRequest(http.MethodPost, "/api/books/"+testBookISBN+"/return", testBookISBN, "reader@example.com")
	returnRec := httptest.NewRecorder()
	h.returnBook(returnRec, returnReq)

	if returnRec.Code != http.StatusOK {
		t.Fatalf("expected 200 on return, got %d: %s", returnRec.Code, returnRec.Body.String())
	}

	var returned borrowView
	if err := json.Unmarshal(returnRec.Body.Bytes(), &returned); err != nil {
		t.Fatalf("decode return response: %v", err)
	}
	if returned.Status != "RETURNED" {
		t.Errorf("expected status RETURNED, got %s", returned.Status)
	}
}

func TestBorrowBookNotFound(t *testing.T) {
	h := newTestHandlers(t)

	req := newISBNRequest(http.MethodPost, "/api/books/0000000000000/borrow", "0000000000000", "reader@example.com")
	rec := httptest.NewRecorder()
	h.borrowBook(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
