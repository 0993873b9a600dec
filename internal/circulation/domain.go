// internal/circulation/domain.go
package circulation

import (
	"time"

	"github.com/google/uuid"

	"shelfmark/internal/catalog"
)

// Kind names the two transaction shapes.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindReturn   Kind = "return"
)

// Status of a finished request. A declined confirmation is a no-op, not
// an error, so it still gets a receipt.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusDeclined  Status = "declined"
)

// Request carries the plain values a transaction needs. The presentation
// layer resolves its widgets/flags into these before calling the
// coordinator; Confirmed is the operator's confirmation token.
type Request struct {
	SchoolID  string `json:"school_id"`
	Class     string `json:"class"`
	Barcode   string `json:"barcode"`
	Confirmed bool   `json:"confirmed"`
}

// Receipt reports the outcome of a transaction for display: the student,
// the updated book record, and the ledger sequence id backing the change.
type Receipt struct {
	TransactionID uuid.UUID             `json:"transaction_id"`
	Kind          Kind                  `json:"kind"`
	Status        Status                `json:"status"`
	Student       catalog.StudentRecord `json:"student"`
	Book          catalog.BookRecord    `json:"book"`
	SequenceID    int64                 `json:"sequence_id,omitempty"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
}
