package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"tradepost/internal/model"
	"tradepost/internal/store"
)

// WishlistHandler handles wishlist endpoints.
type WishlistHandler struct {
	DB *sql.DB
}

// Toggle handles POST /api/items/{id}/wishlist: flips membership and
// reports which way it went.
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	claims := GetClaims(r.Context())
	added, err := store.ToggleWishlist(r.Context(), h.DB, claims.UserID, itemID)
	if err != nil {
		storeError(w, err, "failed to toggle wishlist")
		return
	}

	action := "removed"
	if added {
		action = "added"
	}
	jsonResponse(w, http.StatusOK, map[string]string{"action": action})
}

// List handles GET /api/wishlist: the caller's saved items, most recently
// saved first.
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	entries, err := store.ListWishlist(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list wishlist")
		return
	}
	if entries == nil {
		entries = []model.WishlistItem{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
