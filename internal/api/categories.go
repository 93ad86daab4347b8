package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"tradepost/internal/model"
	"tradepost/internal/store"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	DB *sql.DB
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// Create handles POST /api/categories (admin only).
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name)
	if err != nil {
		storeError(w, err, "failed to create category")
		return
	}

	slog.Info("category created", "category", category.Name)
	jsonResponse(w, http.StatusCreated, category)
}
