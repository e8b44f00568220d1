package database

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres error codes the service cares about.
const (
	codeUniqueViolation = "23505"
	codeUndefinedTable  = "42P01"
	codeUndefinedColumn = "42703"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsUndefinedTable reports whether err means the queried table does not exist.
func IsUndefinedTable(err error) bool {
	return hasCode(err, codeUndefinedTable)
}

// IsUndefinedColumn reports whether err means the queried column does not exist.
func IsUndefinedColumn(err error) bool {
	return hasCode(err, codeUndefinedColumn)
}

// IsMissingSchema reports whether err means an optional table or column has not
// been provisioned yet. Callers use this to degrade features instead of failing.
func IsMissingSchema(err error) bool {
	return IsUndefinedTable(err) || IsUndefinedColumn(err)
}

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}
