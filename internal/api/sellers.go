package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"tradepost/internal/model"
	"tradepost/internal/store"
)

// SellersHandler handles public seller profile endpoints.
type SellersHandler struct {
	DB *sql.DB
}

// sellerProfile is the public view of a seller: no email, no password hash,
// just the storefront.
type sellerProfile struct {
	ID       int64               `json:"id"`
	Username string              `json:"username"`
	Stats    model.SellerStats   `json:"stats"`
	Stars    model.StarBreakdown `json:"stars"`
	Items    []model.Item        `json:"items"`
}

// Get handles GET /api/sellers/{id}: the seller's profile with their unsold
// listings and review stats.
func (h *SellersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid seller id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get seller")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "seller not found")
		return
	}

	stats, err := store.SellerStats(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get seller stats")
		return
	}

	items, err := store.ListSellerItems(r.Context(), h.DB, id, true)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list seller items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	jsonResponse(w, http.StatusOK, sellerProfile{
		ID:       user.ID,
		Username: user.Username,
		Stats:    stats,
		Stars:    stats.Stars(),
		Items:    items,
	})
}
