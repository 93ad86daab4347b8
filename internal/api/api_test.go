package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"tradepost/internal/db"
	"tradepost/internal/model"
	"tradepost/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", string(hash), model.RoleAdmin)

	// Get token.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password123"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}

	return server, loginResp.Token
}

// signup registers a fresh user through the API and returns their token.
func signup(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": "password123"})
	resp, err := http.Post(server.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signup request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup failed for %s: %d", username, resp.StatusCode)
	}

	var signupResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&signupResp)
	if signupResp.Token == "" {
		t.Fatal("empty token from signup")
	}
	return signupResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doJSON runs an authenticated request, asserts the status and decodes the
// response into target (which may be nil).
func doJSON(t *testing.T, method, url, token string, body any, wantStatus int, target any) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d", method, url, wantStatus, resp.StatusCode)
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSignupValidation(t *testing.T) {
	server, _ := setupTestServer(t)

	// Short password rejected.
	body, _ := json.Marshal(map[string]string{"username": "newuser", "password": "short"})
	resp, _ := http.Post(server.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Duplicate username rejected.
	signup(t, server, "taken")
	body, _ = json.Marshal(map[string]string{"username": "taken", "password": "password123"})
	resp, _ = http.Post(server.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCategoryCreationAdminOnly(t *testing.T) {
	server, adminToken := setupTestServer(t)
	userToken := signup(t, server, "regular")

	req, _ := authRequest("POST", server.URL+"/api/categories", userToken, map[string]string{"name": "Nope"})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	doJSON(t, "POST", server.URL+"/api/categories", adminToken,
		map[string]string{"name": "Electronics"}, http.StatusCreated, nil)

	// Duplicate category conflicts.
	req, _ = authRequest("POST", server.URL+"/api/categories", adminToken, map[string]string{"name": "electronics"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate category, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMarketplaceFlow(t *testing.T) {
	server, adminToken := setupTestServer(t)
	sellerToken := signup(t, server, "seller")
	buyerToken := signup(t, server, "buyer")

	// Admin creates the category.
	var category model.Category
	doJSON(t, "POST", server.URL+"/api/categories", adminToken,
		map[string]string{"name": "Electronics"}, http.StatusCreated, &category)

	// Seller lists three items; the first is the most expensive.
	prices := []string{"99.99", "49.99", "9.99"}
	var items []model.Item
	for i, p := range prices {
		var item model.Item
		doJSON(t, "POST", server.URL+"/api/items", sellerToken, map[string]any{
			"title":       fmt.Sprintf("Electronics Item %d", i+1),
			"description": "works fine",
			"price":       p,
			"category_id": category.ID,
		}, http.StatusCreated, &item)
		items = append(items, item)
	}
	if items[0].Price.String() != "99.99" {
		t.Errorf("expected exact price 99.99, got %s", items[0].Price)
	}

	// Browse sorted by price descending: most expensive first.
	var page browsePageResponse
	doJSON(t, "GET", server.URL+"/api/items?sort=price_desc", buyerToken, nil, http.StatusOK, &page)
	if page.Total != 3 {
		t.Fatalf("expected 3 items, got %d", page.Total)
	}
	if page.Items[0].Title != "Electronics Item 1" {
		t.Errorf("expected most expensive first, got %q", page.Items[0].Title)
	}

	// Query matching the category name exactly becomes a category filter.
	doJSON(t, "GET", server.URL+"/api/items?q=electronics", buyerToken, nil, http.StatusOK, &page)
	if page.MatchedCategoryID != category.ID {
		t.Errorf("expected matched category %d, got %d", category.ID, page.MatchedCategoryID)
	}
	if page.Total != 3 {
		t.Errorf("expected 3 items via category shortcut, got %d", page.Total)
	}

	// Way-out-of-range page clamps instead of failing.
	doJSON(t, "GET", server.URL+"/api/items?page=9999", buyerToken, nil, http.StatusOK, &page)
	if page.Page != page.TotalPages {
		t.Errorf("expected page clamped to %d, got %d", page.TotalPages, page.Page)
	}

	// Buyer wishlists the first item; browse now flags it.
	target := items[0]
	var toggle map[string]string
	doJSON(t, "POST", fmt.Sprintf("%s/api/items/%d/wishlist", server.URL, target.ID), buyerToken,
		nil, http.StatusOK, &toggle)
	if toggle["action"] != "added" {
		t.Errorf("expected action 'added', got %q", toggle["action"])
	}

	doJSON(t, "GET", server.URL+"/api/items?sort=price_desc", buyerToken, nil, http.StatusOK, &page)
	if !page.Items[0].Wishlisted {
		t.Error("expected saved item flagged as wishlisted")
	}
	if page.Items[1].Wishlisted || page.Items[2].Wishlisted {
		t.Error("unsaved items must not be flagged")
	}

	// Toggling again removes it.
	doJSON(t, "POST", fmt.Sprintf("%s/api/items/%d/wishlist", server.URL, target.ID), buyerToken,
		nil, http.StatusOK, &toggle)
	if toggle["action"] != "removed" {
		t.Errorf("expected action 'removed', got %q", toggle["action"])
	}

	// Buyer contacts the seller about the item with a first message.
	var conversation model.Conversation
	doJSON(t, "POST", fmt.Sprintf("%s/api/items/%d/contact", server.URL, target.ID), buyerToken,
		map[string]string{"body": "is this still available?"}, http.StatusCreated, &conversation)

	// Both parties see the conversation in their inbox with the preview and
	// the other participant's identity.
	counterparts := map[string]string{buyerToken: "seller", sellerToken: "buyer"}
	for token, want := range counterparts {
		var inbox []inboxEntry
		doJSON(t, "GET", server.URL+"/api/conversations", token, nil, http.StatusOK, &inbox)
		if len(inbox) != 1 {
			t.Fatalf("expected 1 conversation, got %d", len(inbox))
		}
		if inbox[0].LastMessage != "is this still available?" {
			t.Errorf("expected message preview, got %q", inbox[0].LastMessage)
		}
		if inbox[0].CounterpartName != want {
			t.Errorf("expected counterpart %q, got %q", want, inbox[0].CounterpartName)
		}
	}

	// Seller replies; the outsider admin may not read the thread.
	doJSON(t, "POST", fmt.Sprintf("%s/api/conversations/%d/messages", server.URL, conversation.ID),
		sellerToken, map[string]string{"body": "yes it is"}, http.StatusCreated, nil)

	req, _ := authRequest("GET", fmt.Sprintf("%s/api/conversations/%d", server.URL, conversation.ID), adminToken, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for outsider, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Seller cannot contact themselves about their own listing.
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/items/%d/contact", server.URL, target.ID), sellerToken,
		map[string]string{"body": "hi me"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for self-contact, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Buyer reviews the seller once; the duplicate conflicts.
	doJSON(t, "POST", fmt.Sprintf("%s/api/sellers/%d/reviews", server.URL, target.SellerID), buyerToken,
		map[string]any{"rating": 5, "comment": "smooth deal"}, http.StatusCreated, nil)

	req, _ = authRequest("POST", fmt.Sprintf("%s/api/sellers/%d/reviews", server.URL, target.SellerID), buyerToken,
		map[string]any{"rating": 1})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate review, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Public seller profile shows the stats.
	var profile sellerProfile
	doJSON(t, "GET", fmt.Sprintf("%s/api/sellers/%d", server.URL, target.SellerID), "", nil, http.StatusOK, &profile)
	if profile.Stats.Count != 1 || profile.Stats.Average == nil || *profile.Stats.Average != 5 {
		t.Errorf("unexpected seller stats: %+v", profile.Stats)
	}
	if profile.Stars.Full != 5 {
		t.Errorf("expected 5 full stars, got %+v", profile.Stars)
	}

	// Lookup resolves the public id and partial titles.
	var found model.Item
	doJSON(t, "GET", server.URL+"/api/lookup?token="+target.PublicID, "", nil, http.StatusOK, &found)
	if found.ID != target.ID {
		t.Errorf("expected item %d via public id, got %d", target.ID, found.ID)
	}

	// Marking an item sold removes it from browse and the feed.
	doJSON(t, "PUT", fmt.Sprintf("%s/api/items/%d/sold", server.URL, target.ID), sellerToken,
		map[string]bool{"sold": true}, http.StatusOK, nil)

	var feed []model.Item
	doJSON(t, "GET", server.URL+"/api/feed", "", nil, http.StatusOK, &feed)
	if len(feed) != 2 {
		t.Errorf("expected 2 items in feed after sale, got %d", len(feed))
	}

	// Seller dashboard reflects the sale.
	var dashboard struct {
		Dashboard model.SellerDashboard `json:"dashboard"`
	}
	doJSON(t, "GET", server.URL+"/api/dashboard", sellerToken, nil, http.StatusOK, &dashboard)
	if dashboard.Dashboard.TotalItems != 3 || dashboard.Dashboard.SoldItems != 1 {
		t.Errorf("unexpected dashboard: %+v", dashboard.Dashboard)
	}
	if dashboard.Dashboard.Revenue.String() != "99.99" {
		t.Errorf("expected revenue 99.99, got %s", dashboard.Dashboard.Revenue)
	}
}

func TestFeedFieldContract(t *testing.T) {
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database, testJWTSecret))
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	seller, _ := store.CreateUser(ctx, database, "seller", string(hash), model.RoleUser)

	bare, err := store.CreateItem(ctx, database, seller.ID, nil, "No photo", "", decimal.RequireFromString("5.00"), "")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	pictured, err := store.CreateItem(ctx, database, seller.ID, nil, "With photo", "", decimal.RequireFromString("7.50"), "")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := store.SetItemImage(ctx, database, pictured.ID, []byte{0xff, 0xd8}, "image/jpeg"); err != nil {
		t.Fatalf("SetItemImage: %v", err)
	}

	var feed []map[string]any
	doJSON(t, "GET", server.URL+"/api/feed", "", nil, http.StatusOK, &feed)
	if len(feed) != 2 {
		t.Fatalf("expected 2 feed entries, got %d", len(feed))
	}

	for _, entry := range feed {
		for _, field := range []string{"id", "title", "description", "price", "image_ref", "is_sold", "created_at"} {
			if _, ok := entry[field]; !ok {
				t.Errorf("feed entry missing %q field", field)
			}
		}
	}

	// Newest first, so the pictured item leads and carries the image path.
	wantRef := fmt.Sprintf("/api/items/%d/image", pictured.ID)
	if feed[0]["image_ref"] != wantRef {
		t.Errorf("expected image_ref %q, got %v", wantRef, feed[0]["image_ref"])
	}
	if feed[1]["image_ref"] != "" {
		t.Errorf("expected empty image_ref for item %d, got %v", bare.ID, feed[1]["image_ref"])
	}
}

func TestItemOwnershipEnforced(t *testing.T) {
	server, _ := setupTestServer(t)
	sellerToken := signup(t, server, "seller")
	otherToken := signup(t, server, "other")

	var item model.Item
	doJSON(t, "POST", server.URL+"/api/items", sellerToken, map[string]any{
		"title": "Mine",
		"price": "10.00",
	}, http.StatusCreated, &item)

	req, _ := authRequest("DELETE", fmt.Sprintf("%s/api/items/%d", server.URL, item.ID), otherToken, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 deleting someone else's item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("PUT", fmt.Sprintf("%s/api/items/%d", server.URL, item.ID), otherToken, map[string]any{
		"title": "Hijacked",
		"price": "1.00",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 updating someone else's item, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateItemRejectsBadPrice(t *testing.T) {
	server, _ := setupTestServer(t)
	token := signup(t, server, "seller")

	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"title": "Bad price",
		"price": "9.999",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for sub-cent price, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestBrowseAnonymous(t *testing.T) {
	server, _ := setupTestServer(t)
	token := signup(t, server, "seller")

	doJSON(t, "POST", server.URL+"/api/items", token, map[string]any{
		"title": "Public thing",
		"price": "3.50",
	}, http.StatusCreated, nil)

	// No token at all: browse still works, nothing is flagged wishlisted.
	resp, err := http.Get(server.URL + "/api/items")
	if err != nil {
		t.Fatalf("anonymous browse: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var page browsePageResponse
	json.NewDecoder(resp.Body).Decode(&page)
	if page.Total != 1 {
		t.Fatalf("expected 1 item, got %d", page.Total)
	}
	if page.Items[0].Wishlisted {
		t.Error("anonymous browse must not flag wishlisted items")
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	server, _ := setupTestServer(t)
	sellerToken := signup(t, server, "seller")
	buyerToken := signup(t, server, "buyer")

	var item model.Item
	doJSON(t, "POST", server.URL+"/api/items", sellerToken, map[string]any{
		"title": "Couch",
		"price": "40.00",
	}, http.StatusCreated, &item)

	var conversation model.Conversation
	doJSON(t, "POST", fmt.Sprintf("%s/api/items/%d/contact", server.URL, item.ID), buyerToken,
		map[string]string{}, http.StatusCreated, &conversation)

	req, _ := authRequest("POST", fmt.Sprintf("%s/api/conversations/%d/messages", server.URL, conversation.ID),
		buyerToken, map[string]string{"body": "   "})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for blank message, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
