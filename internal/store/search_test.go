package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"tradepost/internal/db"
)

// seedBrowseItems creates a category and n items in it, titled "<prefix> 1"
// through "<prefix> n", priced 1.00 through n.00.
func seedBrowseItems(t *testing.T, database *sql.DB, sellerID int64, category string, n int) int64 {
	t.Helper()
	ctx := context.Background()
	cat, err := CreateCategory(ctx, database, category)
	if err != nil {
		t.Fatalf("CreateCategory(%s): %v", category, err)
	}
	for i := 1; i <= n; i++ {
		_, err := CreateItem(ctx, database, sellerID, &cat.ID,
			fmt.Sprintf("%s %d", category, i), "", price(fmt.Sprintf("%d.00", i)), "")
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}
	return cat.ID
}

func TestBrowseExcludesSold(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seller := createTestUser(t, database, "alice")

	sold, _ := CreateItem(ctx, database, seller.ID, nil, "Sold thing", "", price("1.00"), "")
	CreateItem(ctx, database, seller.ID, nil, "Active thing", "", price("2.00"), "")
	SetItemSold(ctx, database, sold.ID, true)

	page, err := Browse(ctx, database, BrowseParams{})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("expected 1 browsable item, got %d", page.Total)
	}
	if page.Items[0].Title != "Active thing" {
		t.Errorf("expected 'Active thing', got %q", page.Items[0].Title)
	}
}

func TestBrowseCategoryNameShortcut(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seller := createTestUser(t, database, "alice")

	electronicsID := seedBrowseItems(t, database, seller.ID, "Electronics", 3)
	seedBrowseItems(t, database, seller.ID, "Books", 2)

	// A query that exactly names a category becomes a category filter,
	// case-insensitively.
	page, err := Browse(ctx, database, BrowseParams{Query: "electronics"})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("expected 3 electronics items, got %d", page.Total)
	}
	if page.MatchedCategoryID != electronicsID {
		t.Errorf("expected matched category %d, got %d", electronicsID, page.MatchedCategoryID)
	}
}

func TestBrowseSubstringSearch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seller := createTestUser(t, database, "alice")

	CreateItem(ctx, database, seller.ID, nil, "Red bicycle", "", price("1.00"), "")
	CreateItem(ctx, database, seller.ID, nil, "Helmet", "goes with a bicycle", price("2.00"), "")
	CreateItem(ctx, database, seller.ID, nil, "Couch", "", price("3.00"), "")

	page, err := Browse(ctx, database, BrowseParams{Query: "bicycle"})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	// Matches in both title and description.
	if page.Total != 2 {
		t.Errorf("expected 2 matches, got %d", page.Total)
	}
	if page.MatchedCategoryID != 0 {
		t.Errorf("expected no matched category, got %d", page.MatchedCategoryID)
	}
}

func TestBrowseTreatsWildcardsLiterally(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seller := createTestUser(t, database, "alice")

	CreateItem(ctx, database, seller.ID, nil, "Discount: 50 dollars off", "", price("1.00"), "")
	CreateItem(ctx, database, seller.ID, nil, "Plain couch", "", price("2.00"), "")
	CreateItem(ctx, database, seller.ID, nil, "100% cotton shirt", "", price("3.00"), "")

	// % and _ in a query are literal characters, not LIKE wildcards.
	for _, query := range []string{"50%", "c__ch"} {
		page, err := Browse(ctx, database, BrowseParams{Query: query})
		if err != nil {
			t.Fatalf("Browse(%q): %v", query, err)
		}
		if page.Total != 0 {
			t.Errorf("Browse(%q): expected 0 matches, got %d", query, page.Total)
		}
	}

	// Titles containing the characters themselves stay findable.
	page, err := Browse(ctx, database, BrowseParams{Query: "100%"})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 1 || page.Items[0].Title != "100% cotton shirt" {
		t.Errorf("expected the cotton shirt, got %d matches", page.Total)
	}
}

func TestBrowsePriceSorts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seller := createTestUser(t, database, "alice")
	seedBrowseItems(t, database, seller.ID, "Stuff", 3)

	asc, err := Browse(ctx, database, BrowseParams{Sort: SortPriceAsc})
	if err != nil {
		t.Fatalf("Browse asc: %v", err)
	}
	desc, err := Browse(ctx, database, BrowseParams{Sort: SortPriceDesc})
	if err != nil {
		t.Fatalf("Browse desc: %v", err)
	}

	if len(asc.Items) != 3 || len(desc.Items) != 3 {
		t.Fatalf("expected 3 items on both pages, got %d and %d", len(asc.Items), len(desc.Items))
	}
	for i := range asc.Items {
		if asc.Items[i].ID != desc.Items[len(desc.Items)-1-i].ID {
			t.Errorf("position %d: price sorts are not reverses of each other", i)
		}
	}
	if asc.Items[0].Title != "Stuff 1" {
		t.Errorf("expected cheapest first, got %q", asc.Items[0].Title)
	}
}

func TestBrowsePagination(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seller := createTestUser(t, database, "alice")
	seedBrowseItems(t, database, seller.ID, "Stuff", 7)

	page, err := Browse(ctx, database, BrowseParams{PageSize: 3, Page: 3})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.TotalPages != 3 {
		t.Errorf("expected 3 total pages, got %d", page.TotalPages)
	}
	if len(page.Items) != 1 {
		t.Errorf("expected 1 item on last page, got %d", len(page.Items))
	}
}

func TestBrowseClampsOutOfRangePage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seller := createTestUser(t, database, "alice")
	seedBrowseItems(t, database, seller.ID, "Stuff", 4)

	page, err := Browse(ctx, database, BrowseParams{PageSize: 3, Page: 9999})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Page != 2 {
		t.Errorf("expected page clamped to 2, got %d", page.Page)
	}
	if len(page.Items) != 1 {
		t.Errorf("expected last page content, got %d items", len(page.Items))
	}

	// Page zero and negative fall back to the first page.
	page, err = Browse(ctx, database, BrowseParams{PageSize: 3, Page: -5})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Page != 1 {
		t.Errorf("expected page 1, got %d", page.Page)
	}
}

func TestBrowseUnknownSortFallsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seller := createTestUser(t, database, "alice")
	seedBrowseItems(t, database, seller.ID, "Stuff", 2)

	page, err := Browse(ctx, database, BrowseParams{Sort: "bogus"})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	// Newest first is the fallback.
	if page.Items[0].Title != "Stuff 2" {
		t.Errorf("expected newest first, got %q", page.Items[0].Title)
	}
}

func TestBrowseEmptyResult(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	page, err := Browse(ctx, database, BrowseParams{Query: "anything"})
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("expected 0 results, got %d", page.Total)
	}
	if page.TotalPages != 1 {
		t.Errorf("expected 1 page for empty result, got %d", page.TotalPages)
	}
	if page.Page != 1 {
		t.Errorf("expected page 1, got %d", page.Page)
	}
}
