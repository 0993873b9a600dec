// internal/circulation/service.go
package circulation

import (
	"context"

	"shelfmark/internal/catalog"
	"shelfmark/internal/ledger"
)

// Service defines the interface for the circulation coordinator.
type Service interface {
	Purchase(ctx context.Context, req Request) (*Receipt, error)
	Return(ctx context.Context, req Request) (*Receipt, error)
}

// Ledger is the slice of the transaction ledger the coordinator needs.
type Ledger interface {
	RecordPurchase(ctx context.Context, schoolID, barcode string) (ledger.Event, error)
	RecordReturn(ctx context.Context, schoolID, barcode string) (ledger.Event, error)
	HasOpenPurchase(ctx context.Context, schoolID, barcode string) (bool, error)
}

// Persister writes the full book snapshot after every mutation.
type Persister interface {
	SaveBooks(books []catalog.BookRecord) error
}
