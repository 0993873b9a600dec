// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"shelfmark/internal/catalog"
)

// service implements the Service interface. Every transaction follows the
// same shape: validate, confirm, mutate the catalog, append to the ledger,
// rewrite the snapshot. If the append or the save fails, the in-memory
// flip is reverted so catalog, ledger and snapshot never silently diverge.
type service struct {
	store     *catalog.Store
	ledger    Ledger
	persister Persister
	log       zerolog.Logger

	// The catalog store does no locking of its own; behind an HTTP
	// surface the validate-mutate-log-persist chain must be serialized,
	// so one mutex guards it end to end.
	mu sync.Mutex

	transactions metric.Int64Counter
}

// NewService creates a new circulation coordinator.
func NewService(store *catalog.Store, ldg Ledger, persister Persister, log zerolog.Logger) Service {
	meter := otel.Meter("shelfmark/circulation")
	transactions, _ := meter.Int64Counter("circulation.transactions",
		metric.WithDescription("Completed, declined and failed circulation transactions"))

	return &service{
		store:        store,
		ledger:       ldg,
		persister:    persister,
		log:          log,
		transactions: transactions,
	}
}

// Purchase checks a copy out to a student.
func (s *service) Purchase(ctx context.Context, req Request) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.store.FindStudent(req.SchoolID, req.Class)
	if err != nil {
		return nil, s.reject(ctx, KindPurchase, ErrInvalidStudent)
	}
	book, err := s.store.FindBook(req.Barcode)
	if err != nil {
		return nil, s.reject(ctx, KindPurchase, fmt.Errorf("purchase %q: %w", req.Barcode, catalog.ErrBookNotFound))
	}
	if !book.Available {
		return nil, s.reject(ctx, KindPurchase, ErrBookUnavailable)
	}

	if !req.Confirmed {
		return s.declined(ctx, KindPurchase, student, book), nil
	}

	return s.commit(ctx, KindPurchase, student, req, false)
}

// Return puts a checked-out copy back on the shelf. It is only authorized
// when the ledger shows an open purchase for the (school_id, barcode)
// pair.
func (s *service) Return(ctx context.Context, req Request) (*Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.store.FindStudent(req.SchoolID, req.Class)
	if err != nil {
		return nil, s.reject(ctx, KindReturn, ErrInvalidStudent)
	}
	book, err := s.store.FindBook(req.Barcode)
	if err != nil {
		return nil, s.reject(ctx, KindReturn, fmt.Errorf("return %q: %w", req.Barcode, catalog.ErrBookNotFound))
	}
	if book.Available {
		return nil, s.reject(ctx, KindReturn, ErrBookNotCheckedOut)
	}

	open, err := s.ledger.HasOpenPurchase(ctx, req.SchoolID, req.Barcode)
	if err != nil {
		return nil, s.reject(ctx, KindReturn, fmt.Errorf("%w: authorize return: %v", ErrPersistence, err))
	}
	if !open {
		return nil, s.reject(ctx, KindReturn, ErrNoOpenPurchase)
	}

	if !req.Confirmed {
		return s.declined(ctx, KindReturn, student, book), nil
	}

	return s.commit(ctx, KindReturn, student, req, true)
}

// commit runs the mutate → log → persist tail shared by both kinds.
// available is the flag value the transaction establishes.
func (s *service) commit(ctx context.Context, kind Kind, student catalog.StudentRecord, req Request, available bool) (*Receipt, error) {
	if err := s.store.SetAvailable(req.Barcode, available); err != nil {
		return nil, s.reject(ctx, kind, err)
	}
	revert := func() {
		if err := s.store.SetAvailable(req.Barcode, !available); err != nil {
			s.log.Error().Err(err).Str("barcode", req.Barcode).Msg("failed to revert availability flag")
		}
	}

	record := s.ledger.RecordPurchase
	if kind == KindReturn {
		record = s.ledger.RecordReturn
	}
	event, err := record(ctx, req.SchoolID, req.Barcode)
	if err != nil {
		revert()
		return nil, s.reject(ctx, kind, fmt.Errorf("%w: ledger append: %v", ErrPersistence, err))
	}

	if err := s.persister.SaveBooks(s.store.Books()); err != nil {
		revert()
		// The ledger is append-only; event stays in the log and the
		// disagreement is surfaced here instead of being papered over.
		s.log.Error().Err(err).
			Int64("sequence_id", event.SequenceID).
			Str("barcode", req.Barcode).
			Msg("snapshot save failed after ledger append; ledger and snapshot disagree")
		return nil, s.reject(ctx, kind, fmt.Errorf("%w: snapshot save (ledger event %d retained): %v", ErrPersistence, event.SequenceID, err))
	}

	book, err := s.store.FindBook(req.Barcode)
	if err != nil {
		return nil, s.reject(ctx, kind, err)
	}

	s.count(ctx, kind, "completed")
	s.log.Info().
		Str("kind", string(kind)).
		Str("school_id", req.SchoolID).
		Str("barcode", req.Barcode).
		Int64("sequence_id", event.SequenceID).
		Msg("transaction completed")

	return &Receipt{
		TransactionID: uuid.New(),
		Kind:          kind,
		Status:        StatusCompleted,
		Student:       student,
		Book:          book,
		SequenceID:    event.SequenceID,
		CompletedAt:   &event.CreatedAt,
	}, nil
}

func (s *service) declined(ctx context.Context, kind Kind, student catalog.StudentRecord, book catalog.BookRecord) *Receipt {
	s.count(ctx, kind, "declined")
	return &Receipt{
		TransactionID: uuid.New(),
		Kind:          kind,
		Status:        StatusDeclined,
		Student:       student,
		Book:          book,
	}
}

func (s *service) reject(ctx context.Context, kind Kind, err error) error {
	s.count(ctx, kind, "failed")
	return err
}

func (s *service) count(ctx context.Context, kind Kind, outcome string) {
	if s.transactions == nil {
		return
	}
	s.transactions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("outcome", outcome),
		),
	)
}
