package library

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dummy-library/inventory-core/internal/config"
	"github.com/dummy-library/inventory-core/internal/store"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address: ":0",
		},
		Database: config.DatabaseConfig{
			Backend: "memory",
		},
		Jobs: config.JobsConfig{
			MaxAttempts: 10,
		},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "console",
		},
		Admin: config.AdminConfig{
			Email: "admin@dummy-library.com",
		},
	}
}

func TestNewAppWithExplicitStore(t *testing.T) {
	s := store.NewMemoryStore()
	if err := s.SeedBook(t.Context(), store.Book{
		ISBN:            "9780132350884",
		Title:           "Clean Code",
		SellCents:       4599,
		BorrowCents:     399,
		StockCents:      2200,
		AvailableCopies: 1,
		SeededCopies:    1,
	}); err != nil {
		t.Fatalf("seed book: %v", err)
	}

	app, err := NewApp(newTestConfig(), WithStore(s))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	if app.Store != s {
		t.Fatal("expected WithStore to take effect")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /api/books, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	if _, err := NewApp(nil); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}

func TestNewAppDefaultsToMemoryStore(t *testing.T) {
	app, err := NewApp(newTestConfig())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	if app.Store == nil {
		t.Fatal("expected a default store to be constructed")
	}
}

func TestAppCloseIsIdempotentSafe(t *testing.T) {
	app, err := NewApp(newTestConfig())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
