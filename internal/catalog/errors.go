// internal/catalog/errors.go
package catalog

import "errors"

var (
	// ErrStudentNotFound means no student matches the (school_id, class) pair.
	ErrStudentNotFound = errors.New("student not found")

	// ErrBookNotFound means no copy with the given barcode exists.
	ErrBookNotFound = errors.New("book not found")
)
