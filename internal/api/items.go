package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"tradepost/internal/imaging"
	"tradepost/internal/model"
	"tradepost/internal/store"
)

// ItemsHandler handles listing endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

type createItemRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  *int64          `json:"category_id"`
	Condition   string          `json:"condition"`
}

// browseItem is a listing annotated for the browse page: whether the
// requesting user wishlisted it and the seller's review stats.
type browseItem struct {
	model.Item
	Wishlisted  bool              `json:"wishlisted"`
	SellerStats model.SellerStats `json:"seller_stats"`
}

type browsePageResponse struct {
	Items             []browseItem `json:"items"`
	Total             int          `json:"total"`
	Page              int          `json:"page"`
	TotalPages        int          `json:"total_pages"`
	PageSize          int          `json:"page_size"`
	MatchedCategoryID int64        `json:"matched_category_id,omitempty"`
}

// enrichItems annotates a page of items with wishlist flags and seller stats
// using one batched query per concern, never one per item.
func enrichItems(r *http.Request, db *sql.DB, items []model.Item) ([]browseItem, error) {
	itemIDs := make([]int64, len(items))
	sellerIDs := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
		if !seen[item.SellerID] {
			seen[item.SellerID] = true
			sellerIDs = append(sellerIDs, item.SellerID)
		}
	}

	stats, err := store.SellerStatsBatch(r.Context(), db, sellerIDs)
	if err != nil {
		return nil, err
	}

	wishlisted := map[int64]bool{}
	if claims := GetClaims(r.Context()); claims != nil {
		wishlisted, err = store.WishlistedSet(r.Context(), db, claims.UserID, itemIDs)
		if err != nil {
			return nil, err
		}
	}

	enriched := make([]browseItem, len(items))
	for i, item := range items {
		enriched[i] = browseItem{
			Item:        item,
			Wishlisted:  wishlisted[item.ID],
			SellerStats: stats[item.SellerID],
		}
	}
	return enriched, nil
}

// Browse handles GET /api/items with q, category, sort and page parameters.
func (h *ItemsHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pageSize, err := store.BrowsePageSize(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load page size")
		return
	}

	params := store.BrowseParams{
		Query:    q.Get("q"),
		Sort:     q.Get("sort"),
		PageSize: pageSize,
	}
	params.CategoryID, _ = strconv.ParseInt(q.Get("category"), 10, 64)
	params.Page, _ = strconv.Atoi(q.Get("page"))

	page, err := store.Browse(r.Context(), h.DB, params)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to browse items")
		return
	}

	enriched, err := enrichItems(r, h.DB, page.Items)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to annotate items")
		return
	}

	jsonResponse(w, http.StatusOK, browsePageResponse{
		Items:             enriched,
		Total:             page.Total,
		Page:              page.Page,
		TotalPages:        page.TotalPages,
		PageSize:          page.PageSize,
		MatchedCategoryID: page.MatchedCategoryID,
	})
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		jsonError(w, http.StatusBadRequest, "title required")
		return
	}
	if req.Condition != "" && !model.ValidCondition(req.Condition) {
		jsonError(w, http.StatusBadRequest, "invalid condition")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, claims.UserID, req.CategoryID,
		req.Title, req.Description, req.Price, req.Condition)
	if err != nil {
		storeError(w, err, "failed to create item")
		return
	}

	slog.Info("item listed", "item", item.ID, "seller", claims.Username)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}: the listing plus seller stats, related
// items and (when signed in) the wishlist flag.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	stats, err := store.SellerStats(r.Context(), h.DB, item.SellerID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get seller stats")
		return
	}

	related, err := store.RelatedItems(r.Context(), h.DB, id, 3)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get related items")
		return
	}
	if related == nil {
		related = []model.Item{}
	}

	wishlisted := false
	if claims := GetClaims(r.Context()); claims != nil {
		wishlisted, err = store.IsWishlisted(r.Context(), h.DB, claims.UserID, id)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "failed to check wishlist")
			return
		}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"item":         item,
		"seller_stats": stats,
		"stars":        stats.Stars(),
		"related":      related,
		"wishlisted":   wishlisted,
	})
}

// ownedItem loads an item and checks the caller may modify it. Writes the
// error response itself and returns nil when the caller should bail out.
func (h *ItemsHandler) ownedItem(w http.ResponseWriter, r *http.Request) *model.Item {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return nil
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil
	}

	claims := GetClaims(r.Context())
	if item.SellerID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "not your listing")
		return nil
	}
	return item
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r)
	if item == nil {
		return
	}

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		jsonError(w, http.StatusBadRequest, "title required")
		return
	}
	if req.Condition == "" {
		req.Condition = item.Condition
	}
	if !model.ValidCondition(req.Condition) {
		jsonError(w, http.StatusBadRequest, "invalid condition")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, item.ID, req.CategoryID,
		req.Title, req.Description, req.Price, req.Condition); err != nil {
		storeError(w, err, "failed to update item")
		return
	}

	updated, _ := store.GetItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r)
	if item == nil {
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	slog.Info("item deleted", "item", item.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// MarkSold handles PUT /api/items/{id}/sold.
func (h *ItemsHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r)
	if item == nil {
		return
	}

	var req struct {
		Sold bool `json:"sold"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.SetItemSold(r.Context(), h.DB, item.ID, req.Sold); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	updated, _ := store.GetItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item := h.ownedItem(w, r)
	if item == nil {
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Normalize(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, photo.Data, photo.MIME); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// feedItem is the machine-consumable feed shape. ImageRef points at the
// image endpoint when the listing has a photo and is empty otherwise.
type feedItem struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageRef    string          `json:"image_ref"`
	IsSold      bool            `json:"is_sold"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Feed handles GET /api/feed: every unsold listing, newest first.
func (h *ItemsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListFeed(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list feed")
		return
	}

	feed := make([]feedItem, len(items))
	for i, item := range items {
		feed[i] = feedItem{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Price:       item.Price,
			IsSold:      item.IsSold,
			CreatedAt:   item.CreatedAt,
		}
		if item.ImageMime != "" {
			feed[i].ImageRef = fmt.Sprintf("/api/items/%d/image", item.ID)
		}
	}
	jsonResponse(w, http.StatusOK, feed)
}

// Lookup handles GET /api/lookup?token=: resolves a public identifier or a
// partial title/category to a single best-match listing.
func (h *ItemsHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		jsonError(w, http.StatusBadRequest, "token parameter required")
		return
	}

	item, err := store.LookupItem(r.Context(), h.DB, token)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to look up item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "no matching item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Dashboard handles GET /api/dashboard: the caller's listing metrics and items.
func (h *ItemsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	dashboard, err := store.SellerDashboard(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get dashboard")
		return
	}

	items, err := store.ListSellerItems(r.Context(), h.DB, claims.UserID, false)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"dashboard": dashboard,
		"items":     items,
	})
}
