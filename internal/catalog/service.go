// internal/catalog/service.go
package catalog

import "context"

// Service defines the interface for the catalog service.
type Service interface {
	// Search ranks distinct titles against the query and reports the
	// availability of every copy behind each ranked title.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	// GetBook looks up a single copy by barcode.
	GetBook(ctx context.Context, barcode string) (BookRecord, error)
}
