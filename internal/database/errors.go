package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// UniqueViolation reports whether err is a unique constraint violation. The
// returned detail names the violated constraint (Postgres) or carries the
// driver message (SQLite, MySQL), so callers can tell which column clashed.
func UniqueViolation(err error) (detail string, ok bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation {
			return pgErr.ConstraintName, true
		}
		return "", false
	}

	// SQLite: "UNIQUE constraint failed: users.email"
	// MySQL: "Error 1062 (23000): Duplicate entry 'x' for key 'users.idx_users_email'"
	msg := err.Error()
	if _, after, found := strings.Cut(msg, "UNIQUE constraint failed: "); found {
		return after, true
	}
	if strings.Contains(msg, "Duplicate entry") {
		if i := strings.LastIndex(msg, "for key "); i >= 0 {
			return strings.Trim(msg[i+len("for key "):], "'"), true
		}
		return msg, true
	}
	return "", false
}
