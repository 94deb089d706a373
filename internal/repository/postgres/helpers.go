package postgres

import (
	"database/sql"
	"errors"
	"strings"

	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// namedValues turns "a, b" into ":a, :b" for sqlx named statements
func namedValues(columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = ":" + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// notFoundOr marks sql.ErrNoRows as not found and anything else as a
// database failure
func notFoundOr(err error, hint string, details map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	return ierr.WithError(err).
		WithHint("Database query failed").
		WithReportableDetails(details).
		Mark(ierr.ErrDatabase)
}
