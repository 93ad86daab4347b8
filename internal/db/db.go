package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database connection and configures pragmas.
// Pragmas are passed in the DSN so they apply to every pooled connection;
// foreign_keys must be on everywhere so deleting an item cascades to its
// conversations and wishlist rows.
func Open(path string) (*sql.DB, error) {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	dsn := path + "?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}
