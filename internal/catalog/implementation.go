// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"

	"shelfmark/internal/search"
)

// DefaultSearchLimit caps ranked titles when the caller does not ask for a
// specific count.
const DefaultSearchLimit = 5

// service implements the Service interface.
type service struct {
	store *Store
	index *search.Index
}

// NewService creates a new catalog service instance. The fuzzy index is
// built once over the store's titles; titles never change at runtime, only
// availability does.
func NewService(store *Store) Service {
	return &service{
		store: store,
		index: search.NewIndex(store.Titles()),
	}
}

// Search ranks distinct titles against the query, then re-scans the store
// for each ranked title to report how many copies are free and which
// barcodes they carry. Ranking stays decoupled from inventory status.
func (s *service) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	matches := s.index.Search(query, limit)
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		res := SearchResult{Title: m.Title, Score: m.Score}
		for _, b := range s.store.ByTitle(m.Title) {
			res.TotalCopies++
			if b.Available {
				res.AvailableCopies++
				res.AvailableBarcodes = append(res.AvailableBarcodes, b.Barcode)
			} else {
				res.CheckedOutCopies++
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// GetBook looks up a single copy by barcode.
func (s *service) GetBook(ctx context.Context, barcode string) (BookRecord, error) {
	book, err := s.store.FindBook(barcode)
	if err != nil {
		return BookRecord{}, fmt.Errorf("get book %q: %w", barcode, err)
	}
	return book, nil
}
