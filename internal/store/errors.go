package store

import "strings"

// sqliteConstraintMessage reports whether err's message is a SQLite
// UNIQUE constraint violation naming the given column. modernc.org/sqlite
// doesn't expose a typed sqlite3.Error the way mattn/go-sqlite3 does, so
// matching the driver's message text is the portable way to classify it.
func sqliteConstraintMessage(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
