// Package catalog loads the book catalog from a YAML seed file at startup
// and provides a TTL-cached read path for the GET /api/books listing,
// grounded on the teacher's YAML-backed and cached product repositories.
package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dummy-library/inventory-core/internal/store"
)

// seedBook mirrors the YAML shape of one catalog entry.
type seedBook struct {
	ISBN        string `yaml:"isbn"`
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Genre       string `yaml:"genre"`
	SellCents   int64  `yaml:"sellCents"`
	BorrowCents int64  `yaml:"borrowCents"`
	StockCents  int64  `yaml:"stockCents"`
	Copies      int    `yaml:"copies"`
}

type seedFile struct {
	Books []seedBook `yaml:"books"`
}

// LoadSeedFile parses a YAML catalog file into store.Book values.
func LoadSeedFile(path string) ([]store.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read seed file: %w", err)
	}

	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse seed file: %w", err)
	}

	books := make([]store.Book, 0, len(doc.Books))
	for _, b := range doc.Books {
		if b.ISBN == "" {
			return nil, fmt.Errorf("catalog: seed entry %q missing isbn", b.Title)
		}
		books = append(books, store.Book{
			ISBN:            b.ISBN,
			Title:           b.Title,
			Author:          b.Author,
			Genre:           b.Genre,
			SellCents:       b.SellCents,
			BorrowCents:     b.BorrowCents,
			StockCents:      b.StockCents,
			AvailableCopies: b.Copies,
			SeededCopies:    b.Copies,
		})
	}
	return books, nil
}

// Seed inserts every book into s. SeedBook is a no-op for ISBNs that already exist.
func Seed(ctx context.Context, s store.Store, books []store.Book) error {
	for _, b := range books {
		if err := s.SeedBook(ctx, b); err != nil {
			return fmt.Errorf("catalog: seed %q: %w", b.ISBN, err)
		}
	}
	return nil
}
