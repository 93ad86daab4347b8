package store

import (
	"context"
	"database/sql"
	"fmt"

	"tradepost/internal/model"
)

// CreateCategory creates a category, deriving the slug from the name.
// Returns ErrSlugTaken if a category with the same slug already exists.
func CreateCategory(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	slug := model.Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("category name produces empty slug")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO categories (name, slug) VALUES (?, ?)`,
		name, slug,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// GetCategoryByName returns a category whose name matches exactly,
// ignoring case. Used by the browse query shortcut.
func GetCategoryByName(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM categories WHERE name = ? COLLATE NOCASE`, name,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category by name: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, slug FROM categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
