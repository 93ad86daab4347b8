package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"tradepost/internal/model"
	"tradepost/internal/store"
)

// ReviewsHandler handles seller review endpoints.
type ReviewsHandler struct {
	DB *sql.DB
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" validate:"max=2000"`
}

// Create handles POST /api/sellers/{id}/reviews.
func (h *ReviewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	sellerID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid seller id")
		return
	}

	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		jsonError(w, http.StatusBadRequest, "comment too long")
		return
	}

	claims := GetClaims(r.Context())
	review, err := store.CreateReview(r.Context(), h.DB, sellerID, claims.UserID, req.Rating, req.Comment)
	if err != nil {
		storeError(w, err, "failed to create review")
		return
	}

	slog.Info("review created", "seller", sellerID, "reviewer", claims.Username, "rating", req.Rating)
	jsonResponse(w, http.StatusCreated, review)
}

// List handles GET /api/sellers/{id}/reviews: the seller's recent reviews
// plus the aggregate stats and star rendering.
func (h *ReviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	sellerID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid seller id")
		return
	}

	reviews, err := store.ListSellerReviews(r.Context(), h.DB, sellerID, 50)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}

	stats, err := store.SellerStats(r.Context(), h.DB, sellerID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get seller stats")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"reviews": reviews,
		"stats":   stats,
		"stars":   stats.Stars(),
	})
}
