package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
)

// DefaultPageSize is the browse page size used when no override is stored.
const DefaultPageSize = 6

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	// Try to generate and insert first (safe against races).
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

// BrowsePageSize returns the configured browse page size, falling back to
// DefaultPageSize when unset or invalid.
func BrowsePageSize(ctx context.Context, db *sql.DB) (int, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'browse_page_size'`,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return DefaultPageSize, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying browse_page_size: %w", err)
	}

	size, err := strconv.Atoi(value)
	if err != nil || size < 1 {
		return DefaultPageSize, nil
	}
	return size, nil
}

// SetBrowsePageSize stores the browse page size override.
func SetBrowsePageSize(ctx context.Context, db *sql.DB, size int) error {
	if size < 1 {
		return fmt.Errorf("page size must be positive")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ('browse_page_size', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(size),
	)
	if err != nil {
		return fmt.Errorf("storing browse_page_size: %w", err)
	}
	return nil
}
