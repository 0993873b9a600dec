// internal/catalog/store.go
package catalog

import "sync"

// Store holds the in-memory catalog: every student record and every book
// record loaded from the snapshots. The store owns both sets for the
// process lifetime. Accessors lock internally so search traffic may read
// while the circulation coordinator flips availability; the coordinator
// still serializes whole transactions with its own mutex.
type Store struct {
	mu       sync.RWMutex
	students []StudentRecord
	books    []*BookRecord
}

// NewStore builds a store from loaded snapshot records. The book slice is
// copied so later snapshot reloads cannot alias live records.
func NewStore(students []StudentRecord, books []BookRecord) *Store {
	s := &Store{students: students, books: make([]*BookRecord, 0, len(books))}
	for i := range books {
		b := books[i]
		s.books = append(s.books, &b)
	}
	return s
}

// FindStudent resolves a student by the (school_id, class) identity pair.
func (s *Store) FindStudent(schoolID, class string) (StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.SchoolID == schoolID && st.Class == class {
			return st, nil
		}
	}
	return StudentRecord{}, ErrStudentNotFound
}

// FindBook returns the copy with the given barcode regardless of state.
func (s *Store) FindBook(barcode string) (BookRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b := s.lookup(barcode); b != nil {
		return *b, nil
	}
	return BookRecord{}, ErrBookNotFound
}

// FindAvailableBook returns the copy only if it is not checked out.
func (s *Store) FindAvailableBook(barcode string) (BookRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b := s.lookup(barcode); b != nil && b.Available {
		return *b, nil
	}
	return BookRecord{}, ErrBookNotFound
}

// FindCheckedOutBook returns the copy only if it is currently checked out.
func (s *Store) FindCheckedOutBook(barcode string) (BookRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b := s.lookup(barcode); b != nil && !b.Available {
		return *b, nil
	}
	return BookRecord{}, ErrBookNotFound
}

// SetAvailable flips the availability flag of exactly one copy in place.
func (s *Store) SetAvailable(barcode string, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.lookup(barcode)
	if b == nil {
		return ErrBookNotFound
	}
	b.Available = available
	return nil
}

// Titles returns one entry per physical copy, in load order. Callers that
// need distinct titles deduplicate themselves.
func (s *Store) Titles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make([]string, 0, len(s.books))
	for _, b := range s.books {
		titles = append(titles, b.Title)
	}
	return titles
}

// Books returns a copy of every book record, in load order. Used to write
// the full snapshot; the snapshot is a wholesale restatement, never
// incremental.
func (s *Store) Books() []BookRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	books := make([]BookRecord, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, *b)
	}
	return books
}

// ByTitle returns every copy sharing the exact title, in load order.
func (s *Store) ByTitle(title string) []BookRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var books []BookRecord
	for _, b := range s.books {
		if b.Title == title {
			books = append(books, *b)
		}
	}
	return books
}

// lookup is called with s.mu held.
func (s *Store) lookup(barcode string) *BookRecord {
	for _, b := range s.books {
		if b.Barcode == barcode {
			return b
		}
	}
	return nil
}
