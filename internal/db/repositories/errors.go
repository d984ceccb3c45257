package repositories

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateName is returned when an insert or update collides with an existing unique name
var ErrDuplicateName = errors.New("name already exists")

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// isUniqueViolation reports whether err carries a PostgreSQL unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// ErrNotFound is returned when a write targets a row that does not exist
var ErrNotFound = errors.New("not found")
