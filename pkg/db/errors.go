package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsUniqueViolation reports whether err is a Postgres unique violation,
// optionally scoped to a single constraint. When the driver error is not in
// the chain, which happens on some gorm paths, it falls back to matching the
// message text.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return constraint == "" || pgErr.ConstraintName == constraint
	}
	if constraint != "" {
		return strings.Contains(err.Error(), constraint)
	}
	return strings.Contains(err.Error(), "duplicate key value")
}
