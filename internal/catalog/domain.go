// internal/catalog/domain.go
package catalog

// BookRecord is one physical copy of a book. The barcode identifies the
// copy; many copies may share a title. Available is the in-memory view of
// the snapshot's is_purchased flag with the polarity inverted.
type BookRecord struct {
	Barcode   string `json:"barcode"`
	Title     string `json:"title"`
	Topic     string `json:"topic"`
	Available bool   `json:"available"`
}

// StudentRecord is a borrower. Records are immutable after load; identity
// for validation is the (SchoolID, Class) pair, SchoolID alone is not
// guaranteed unique.
type StudentRecord struct {
	SchoolID string `json:"school_id"`
	Name     string `json:"name"`
	Class    string `json:"class"`
}

// SearchResult is one ranked title with its availability breakdown.
// Counts cover every copy sharing the title, not a single barcode.
type SearchResult struct {
	Title             string   `json:"title"`
	Score             int      `json:"score"`
	TotalCopies       int      `json:"total_copies"`
	AvailableCopies   int      `json:"available_copies"`
	CheckedOutCopies  int      `json:"checked_out_copies"`
	AvailableBarcodes []string `json:"available_barcodes,omitempty"`
}
