// internal/snapshot/gateway.go

// Package snapshot reads and writes the flat CSV restatements of the
// catalog. Writes are backup-then-replace: the live file is renamed to a
// .bak sibling before the new snapshot is written, and the backup is moved
// back if the write fails. A crash mid-write therefore leaves either the
// old file or the new one, never a half-written file with no fallback.
package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"shelfmark/internal/catalog"
)

// ErrNotFound is returned when a snapshot file is absent. Callers treat it
// as recoverable: load yields no records and the collaborator layer may
// supply or create the file.
var ErrNotFound = errors.New("snapshot file not found")

// DuplicateBarcodeError reports a load-time integrity violation: two rows
// claim the same barcode. The loader refuses to admit either silently.
type DuplicateBarcodeError struct {
	Barcode string
	Line    int
}

func (e *DuplicateBarcodeError) Error() string {
	return fmt.Sprintf("duplicate barcode %q at line %d", e.Barcode, e.Line)
}

// Write schema is fixed; reads tolerate the capitalized aliases the older
// snapshot files carry ("Barcode", "Is Purchased", "School ID", ...).
var (
	bookColumns    = []string{"barcode", "title", "topic", "is_purchased"}
	studentColumns = []string{"school_id", "name", "class"}
)

// Gateway is the persistence gateway over the two snapshot files.
type Gateway struct {
	booksPath    string
	studentsPath string
}

func New(booksPath, studentsPath string) *Gateway {
	return &Gateway{booksPath: booksPath, studentsPath: studentsPath}
}

// BooksPath returns the live books snapshot path.
func (g *Gateway) BooksPath() string { return g.booksPath }

// BackupPath returns where the pre-write state lands on every save.
func (g *Gateway) BackupPath() string { return g.booksPath + ".bak" }

// LoadBooks reads the books snapshot. A missing file yields no records and
// ErrNotFound. A malformed is_purchased field defaults the row to
// available rather than failing the load; a duplicate barcode fails it.
func (g *Gateway) LoadBooks() ([]catalog.BookRecord, error) {
	rows, err := readRows(g.booksPath, bookColumns)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}

	books := make([]catalog.BookRecord, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		barcode := row["barcode"]
		if seen[barcode] {
			return nil, fmt.Errorf("load books: %w", &DuplicateBarcodeError{Barcode: barcode, Line: i + 2})
		}
		seen[barcode] = true

		// On disk 1 means checked out; unparseable values count as 0.
		purchased, err := strconv.Atoi(strings.TrimSpace(row["is_purchased"]))
		if err != nil {
			purchased = 0
		}

		books = append(books, catalog.BookRecord{
			Barcode:   barcode,
			Title:     row["title"],
			Topic:     row["topic"],
			Available: purchased == 0,
		})
	}
	return books, nil
}

// LoadStudents reads the students snapshot. The file is read-only from the
// core's perspective; there is no corresponding save.
func (g *Gateway) LoadStudents() ([]catalog.StudentRecord, error) {
	rows, err := readRows(g.studentsPath, studentColumns)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}

	students := make([]catalog.StudentRecord, 0, len(rows))
	for _, row := range rows {
		students = append(students, catalog.StudentRecord{
			SchoolID: row["school_id"],
			Name:     row["name"],
			Class:    row["class"],
		})
	}
	return students, nil
}

// SaveBooks rewrites the whole books snapshot with the canonical header.
// The previous file is kept at BackupPath as a recovery artifact; on a
// failed write the backup is restored to the live path before reporting.
func (g *Gateway) SaveBooks(books []catalog.BookRecord) error {
	bak := g.BackupPath()

	hadPrevious := false
	if _, err := os.Stat(g.booksPath); err == nil {
		if err := os.Rename(g.booksPath, bak); err != nil {
			return fmt.Errorf("save books: backup: %w", err)
		}
		hadPrevious = true
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("save books: %w", err)
	}

	if err := writeBooks(g.booksPath, books); err != nil {
		os.Remove(g.booksPath)
		if hadPrevious {
			if rerr := os.Rename(bak, g.booksPath); rerr != nil {
				return fmt.Errorf("save books: %v; restore backup: %w", err, rerr)
			}
		}
		return fmt.Errorf("save books: %w", err)
	}
	return nil
}

func writeBooks(path string, books []catalog.BookRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(bookColumns); err != nil {
		f.Close()
		return err
	}
	for _, b := range books {
		purchased := "0"
		if !b.Available {
			purchased = "1"
		}
		if err := w.Write([]string{b.Barcode, b.Title, b.Topic, purchased}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readRows parses a snapshot into column→value maps keyed by the
// canonical column names. Header cells match case-insensitively with
// spaces treated as underscores; extra columns are ignored, but every
// canonical column must be present or the file is rejected outright.
func readRows(path string, columns []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, cell := range header {
		index[normalizeHeader(cell)] = i
	}
	var missing []string
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header missing column(s) %s", strings.Join(missing, ", "))
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(columns))
		for _, col := range columns {
			if i, ok := index[col]; ok && i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func normalizeHeader(cell string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(cell)), " ", "_")
}
