// internal/circulation/errors.go
package circulation

import "errors"

var (
	// ErrInvalidStudent means no student matches the (school_id, class)
	// pair. Nothing is mutated.
	ErrInvalidStudent = errors.New("invalid student details")

	// ErrBookUnavailable means the copy exists but is already checked out.
	ErrBookUnavailable = errors.New("book is not available")

	// ErrBookNotCheckedOut means a return targeted a copy that is on the
	// shelf.
	ErrBookNotCheckedOut = errors.New("book is not checked out")

	// ErrNoOpenPurchase means the ledger has no open purchase for the
	// (school_id, barcode) pair, so the return is not authorized.
	ErrNoOpenPurchase = errors.New("no open purchase recorded for this student and book")

	// ErrPersistence means the ledger append or the snapshot save failed.
	// The in-memory mutation has been rolled back.
	ErrPersistence = errors.New("transaction could not be persisted")
)
