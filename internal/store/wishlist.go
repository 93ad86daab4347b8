package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tradepost/internal/model"
)

// ToggleWishlist flips membership of (user, item) in the user's wishlist.
// Returns true when the item was added, false when removed, and ErrNotFound
// for an unknown item. Delete-then-insert inside one transaction keeps the
// pair unique under concurrent double toggles.
func ToggleWishlist(ctx context.Context, db *sql.DB, userID, itemID int64) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE id = ?`, itemID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking item: %w", err)
	}
	if exists == 0 {
		return false, ErrNotFound
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM wishlist WHERE user_id = ? AND item_id = ?`,
		userID, itemID,
	)
	if err != nil {
		return false, fmt.Errorf("removing wishlist entry: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking wishlist removal: %w", err)
	}

	added := false
	if removed == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO wishlist (user_id, item_id, created_at) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, item_id) DO NOTHING`,
			userID, itemID, time.Now().UTC(),
		)
		if err != nil {
			return false, fmt.Errorf("adding wishlist entry: %w", err)
		}
		added = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing wishlist toggle: %w", err)
	}
	return added, nil
}

// IsWishlisted reports whether the user has saved the item.
func IsWishlisted(ctx context.Context, db *sql.DB, userID, itemID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wishlist WHERE user_id = ? AND item_id = ?`,
		userID, itemID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking wishlist: %w", err)
	}
	return count > 0, nil
}

// WishlistedSet returns which of itemIDs the user has saved, as a set, in
// a single query. Used to annotate browse pages without per-item lookups.
func WishlistedSet(ctx context.Context, db *sql.DB, userID int64, itemIDs []int64) (map[int64]bool, error) {
	set := make(map[int64]bool, len(itemIDs))
	if len(itemIDs) == 0 {
		return set, nil
	}

	placeholders := strings.Repeat("?,", len(itemIDs)-1) + "?"
	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, userID)
	for _, id := range itemIDs {
		args = append(args, id)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT item_id FROM wishlist WHERE user_id = ? AND item_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying wishlisted set: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		if err := rows.Scan(&itemID); err != nil {
			return nil, fmt.Errorf("scanning wishlisted item: %w", err)
		}
		set[itemID] = true
	}
	return set, rows.Err()
}

// ListWishlist returns the user's saved items, most recently saved first.
func ListWishlist(ctx context.Context, db *sql.DB, userID int64) ([]model.WishlistItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+`, w.created_at AS added_at
		 FROM wishlist w
		 JOIN items i ON i.id = w.item_id
		 JOIN users u ON u.id = i.seller_id
		 LEFT JOIN categories c ON c.id = i.category_id
		 WHERE w.user_id = ?
		 ORDER BY w.created_at DESC, w.item_id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing wishlist: %w", err)
	}
	defer rows.Close()

	var entries []model.WishlistItem
	for rows.Next() {
		var entry model.WishlistItem
		var cents int64
		var imageMime, categoryName sql.NullString
		if err := rows.Scan(&entry.ID, &entry.PublicID, &entry.SellerID, &entry.CategoryID,
			&entry.Title, &entry.Description, &cents, &entry.Condition, &entry.IsSold,
			&imageMime, &entry.CreatedAt, &entry.UpdatedAt, &entry.SellerName,
			&categoryName, &entry.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning wishlist entry: %w", err)
		}
		entry.Price = decimalFromCents(cents)
		entry.ImageMime = imageMime.String
		entry.CategoryName = categoryName.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
