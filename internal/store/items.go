package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradepost/internal/model"
)

// itemColumns is the select list shared by all item reads. Seller and
// category names are joined in so pages never need per-row follow-ups.
const itemColumns = `i.id, i.public_id, i.seller_id, i.category_id, i.title, i.description,
	        i.price_cents, i.condition, i.is_sold, i.image_mime, i.created_at, i.updated_at,
	        u.username AS seller_name, c.name AS category_name`

const itemJoins = ` FROM items i
	 JOIN users u ON u.id = i.seller_id
	 LEFT JOIN categories c ON c.id = i.category_id`

// centsFromPrice converts a decimal price to integer cents, rejecting
// negative values and sub-cent precision.
func centsFromPrice(price decimal.Decimal) (int64, error) {
	if price.IsNegative() || !price.Equal(price.Round(2)) {
		return 0, ErrInvalidPrice
	}
	return price.Shift(2).IntPart(), nil
}

// decimalFromCents converts stored integer cents back to a 2-place decimal.
func decimalFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var cents int64
	var imageMime, categoryName sql.NullString
	err := row.Scan(&item.ID, &item.PublicID, &item.SellerID, &item.CategoryID,
		&item.Title, &item.Description, &cents, &item.Condition, &item.IsSold,
		&imageMime, &item.CreatedAt, &item.UpdatedAt, &item.SellerName, &categoryName)
	if err != nil {
		return nil, err
	}
	item.Price = decimalFromCents(cents)
	item.ImageMime = imageMime.String
	item.CategoryName = categoryName.String
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CreateItem creates a new listing for a seller. The seller is fixed for
// the lifetime of the item; a public UUID is assigned for external lookups.
func CreateItem(ctx context.Context, db *sql.DB, sellerID int64, categoryID *int64, title, description string, price decimal.Decimal, condition string) (*model.Item, error) {
	cents, err := centsFromPrice(price)
	if err != nil {
		return nil, err
	}
	if condition == "" {
		condition = model.ConditionUsedGood
	}

	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (public_id, seller_id, category_id, title, description, price_cents, condition, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sellerID, categoryID, title, description, cents, condition, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID with seller and category names joined in.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemJoins+` WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// UpdateItem updates an item's listing details. The seller is never changed.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, categoryID *int64, title, description string, price decimal.Decimal, condition string) error {
	cents, err := centsFromPrice(price)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`UPDATE items SET category_id = ?, title = ?, description = ?, price_cents = ?,
		        condition = ?, updated_at = ?
		 WHERE id = ?`,
		categoryID, title, description, cents, condition, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// SetItemSold marks an item sold or unsold.
func SetItemSold(ctx context.Context, db *sql.DB, id int64, sold bool) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET is_sold = ?, updated_at = ? WHERE id = ?`,
		sold, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking item sold: %w", err)
	}
	return nil
}

// DeleteItem removes an item. Conversations and wishlist entries that
// reference it are removed by the cascade.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// ListSellerItems returns a seller's items, newest first, optionally
// restricted to unsold listings.
func ListSellerItems(ctx context.Context, db *sql.DB, sellerID int64, unsoldOnly bool) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + itemJoins + ` WHERE i.seller_id = ?`
	if unsoldOnly {
		query += ` AND i.is_sold = 0`
	}
	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing seller items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// RelatedItems returns up to limit unsold items from the same category,
// excluding the item itself. Items without a category have no relations.
func RelatedItems(ctx context.Context, db *sql.DB, itemID int64, limit int) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+itemJoins+`
		 WHERE i.is_sold = 0 AND i.id <> ?
		   AND i.category_id IS NOT NULL
		   AND i.category_id = (SELECT category_id FROM items WHERE id = ?)
		 ORDER BY i.created_at DESC, i.id DESC LIMIT ?`,
		itemID, itemID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing related items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListFeed returns all unsold items, newest first. The feed is unpaginated;
// the unsold predicate bounds it.
func ListFeed(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+itemJoins+`
		 WHERE i.is_sold = 0 ORDER BY i.created_at DESC, i.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing feed: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// LookupItem resolves a free-form token to a single item: an exact
// public identifier match wins; otherwise the best partial match on title
// or category name among unsold items (title matches rank first, then
// newest). Returns nil when nothing matches.
func LookupItem(ctx context.Context, db *sql.DB, token string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemJoins+` WHERE i.public_id = ?`, token,
	))
	if err == nil {
		return item, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("looking up item by public id: %w", err)
	}

	pattern := likePattern(token)
	item, err = scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+itemJoins+`
		 WHERE i.is_sold = 0 AND (i.title LIKE ? ESCAPE '\' OR c.name LIKE ? ESCAPE '\')
		 ORDER BY (CASE WHEN i.title LIKE ? ESCAPE '\' THEN 0 ELSE 1 END),
		          i.created_at DESC, i.id DESC
		 LIMIT 1`,
		pattern, pattern, pattern,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up item by text: %w", err)
	}
	return item, nil
}

// SellerDashboard returns listing and revenue metrics for a seller in a
// single aggregate query.
func SellerDashboard(ctx context.Context, db *sql.DB, sellerID int64) (*model.SellerDashboard, error) {
	var total, sold int
	var revenueCents, activeCents int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(is_sold), 0),
		        COALESCE(SUM(CASE WHEN is_sold = 1 THEN price_cents END), 0),
		        COALESCE(SUM(CASE WHEN is_sold = 0 THEN price_cents END), 0)
		 FROM items WHERE seller_id = ?`, sellerID,
	).Scan(&total, &sold, &revenueCents, &activeCents)
	if err != nil {
		return nil, fmt.Errorf("getting seller dashboard: %w", err)
	}

	return &model.SellerDashboard{
		TotalItems:    total,
		SoldItems:     sold,
		Revenue:       decimalFromCents(revenueCents),
		ActiveRevenue: decimalFromCents(activeCents),
	}, nil
}

// SetItemImage stores an item's photo.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = ? WHERE id = ?`,
		image, mime, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's photo data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
