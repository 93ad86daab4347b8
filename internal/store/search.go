package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tradepost/internal/model"
)

// Sort orders for browsing. Anything else falls back to SortNewest.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// BrowseParams are the browse/search inputs. Zero values mean "no filter":
// empty Query, CategoryID 0. Page below 1 and unknown Sort values fall back
// to their defaults rather than failing; PageSize 0 uses DefaultPageSize.
type BrowseParams struct {
	Query      string
	CategoryID int64
	Sort       string
	Page       int
	PageSize   int
}

// BrowsePage is one page of browse results plus pagination metadata.
// MatchedCategoryID is non-zero when the free-text query matched a category
// name exactly and was treated as a category filter instead.
type BrowsePage struct {
	Items             []model.Item `json:"items"`
	Total             int          `json:"total"`
	Page              int          `json:"page"`
	TotalPages        int          `json:"total_pages"`
	PageSize          int          `json:"page_size"`
	MatchedCategoryID int64        `json:"matched_category_id,omitempty"`
}

// Browse returns a filtered, sorted, paginated view of unsold items.
//
// Query resolution: a query that equals a category name exactly
// (case-insensitive) filters by that category alone; otherwise it is a
// case-insensitive substring match across title, description and category
// name. An explicit CategoryID is ANDed in when no shortcut applied.
// Out-of-range pages clamp to the nearest valid page. Read-only: one COUNT
// query plus one page query.
func Browse(ctx context.Context, db *sql.DB, p BrowseParams) (*BrowsePage, error) {
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}

	query := strings.TrimSpace(p.Query)
	categoryID := p.CategoryID
	var matchedCategoryID int64

	// Exact category-name shortcut: the query becomes a category filter and
	// the matched id is surfaced so the caller can reflect it in UI state.
	if query != "" {
		cat, err := GetCategoryByName(ctx, db, query)
		if err != nil {
			return nil, err
		}
		if cat != nil {
			matchedCategoryID = cat.ID
			categoryID = cat.ID
			query = ""
		}
	}

	where := ` WHERE i.is_sold = 0`
	var args []any

	if query != "" {
		where += ` AND (i.title LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\' OR c.name LIKE ? ESCAPE '\')`
		pattern := likePattern(query)
		args = append(args, pattern, pattern, pattern)
	}
	if categoryID > 0 {
		where += ` AND i.category_id = ?`
		args = append(args, categoryID)
	}

	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items i LEFT JOIN categories c ON c.id = i.category_id`+where,
		args...,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("counting browse results: %w", err)
	}

	totalPages := (total + p.PageSize - 1) / p.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page := p.Page
	if page > totalPages {
		page = totalPages
	}

	// Stable total order: ties always broken by id so pagination never
	// repeats or drops rows between pages.
	var order string
	switch p.Sort {
	case SortPriceAsc:
		order = ` ORDER BY i.price_cents ASC, i.id ASC`
	case SortPriceDesc:
		order = ` ORDER BY i.price_cents DESC, i.id ASC`
	default:
		order = ` ORDER BY i.created_at DESC, i.id ASC`
	}

	pageArgs := append(args, p.PageSize, (page-1)*p.PageSize)
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+itemJoins+where+order+` LIMIT ? OFFSET ?`,
		pageArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying browse page: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	return &BrowsePage{
		Items:             items,
		Total:             total,
		Page:              page,
		TotalPages:        totalPages,
		PageSize:          p.PageSize,
		MatchedCategoryID: matchedCategoryID,
	}, nil
}
