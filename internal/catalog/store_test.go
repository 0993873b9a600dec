// internal/catalog/store_test.go
package catalog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() *Store {
	return NewStore(
		[]StudentRecord{
			{SchoolID: "S001", Name: "Ann", Class: "10"},
			{SchoolID: "S001", Name: "Arun", Class: "11"},
		},
		[]BookRecord{
			{Barcode: "B001", Title: "Dune", Topic: "Fiction", Available: true},
			{Barcode: "B002", Title: "Dune", Topic: "Fiction", Available: false},
			{Barcode: "B003", Title: "Foundation", Topic: "Fiction", Available: true},
		},
	)
}

func TestFindStudentMatchesPairIdentity(t *testing.T) {
	s := testStore()

	student, err := s.FindStudent("S001", "10")
	require.NoError(t, err)
	assert.Equal(t, "Ann", student.Name)

	// The same school id in another class is a different student.
	student, err = s.FindStudent("S001", "11")
	require.NoError(t, err)
	assert.Equal(t, "Arun", student.Name)

	_, err = s.FindStudent("S001", "12")
	assert.ErrorIs(t, err, ErrStudentNotFound)
	_, err = s.FindStudent("S999", "10")
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestFindBookVariants(t *testing.T) {
	s := testStore()

	book, err := s.FindBook("B002")
	require.NoError(t, err)
	assert.False(t, book.Available)

	_, err = s.FindAvailableBook("B002")
	assert.ErrorIs(t, err, ErrBookNotFound)
	book, err = s.FindAvailableBook("B001")
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)

	_, err = s.FindCheckedOutBook("B001")
	assert.ErrorIs(t, err, ErrBookNotFound)
	_, err = s.FindCheckedOutBook("B002")
	require.NoError(t, err)

	_, err = s.FindBook("B999")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestSetAvailable(t *testing.T) {
	s := testStore()

	require.NoError(t, s.SetAvailable("B001", false))
	book, err := s.FindBook("B001")
	require.NoError(t, err)
	assert.False(t, book.Available)

	require.NoError(t, s.SetAvailable("B001", true))
	book, err = s.FindBook("B001")
	require.NoError(t, err)
	assert.True(t, book.Available)

	assert.ErrorIs(t, s.SetAvailable("B999", false), ErrBookNotFound)
}

func TestTitlesListsEveryCopy(t *testing.T) {
	s := testStore()

	assert.Equal(t, []string{"Dune", "Dune", "Foundation"}, s.Titles())
}

func TestBooksReturnsDetachedCopies(t *testing.T) {
	s := testStore()

	books := s.Books()
	require.Len(t, books, 3)
	books[0].Available = false

	book, err := s.FindBook("B001")
	require.NoError(t, err)
	assert.True(t, book.Available, "mutating the returned slice must not touch the store")
}

// Readers run against a writer flipping availability; the race detector
// flags any unguarded access.
func TestConcurrentReadsDuringAvailabilityWrites(t *testing.T) {
	s := testStore()

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if err := s.SetAvailable("B001", i%2 == 0); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for j := 0; j < 200; j++ {
				s.ByTitle("Dune")
				s.Books()
				s.Titles()
				if _, err := s.FindBook("B002"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}

	readers.Wait()
	close(stop)
	<-writerDone
}

func TestByTitle(t *testing.T) {
	s := testStore()

	copies := s.ByTitle("Dune")
	require.Len(t, copies, 2)
	assert.Equal(t, "B001", copies[0].Barcode)
	assert.Equal(t, "B002", copies[1].Barcode)

	assert.Empty(t, s.ByTitle("Hyperion"))
}
