package responders

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONWritesStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, 201, map[string]string{"ok": "true"})

	if rec.Code != 201 {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != "true" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestJSONWithNilPayloadWritesNoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, 204, nil)

	if rec.Code != 204 {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected an empty body, got %q", rec.Body.String())
	}
}

func TestJSONDoesNotEscapeHTML(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, 200, map[string]string{"url": "/books?title=A&B"})

	got := rec.Body.String()
	if got == "" {
		t.Fatal("expected a non-empty body")
	}
	if !strings.Contains(got, "A&B") {
		t.Fatalf("expected ampersand to remain unescaped, got %q", got)
	}
}
