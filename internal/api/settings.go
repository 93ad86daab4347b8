package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"tradepost/internal/store"
)

// SettingsHandler handles admin-tunable settings.
type SettingsHandler struct {
	DB *sql.DB
}

type pageSizeRequest struct {
	PageSize int `json:"page_size" validate:"required,min=1,max=100"`
}

// SetPageSize handles PUT /api/settings/page-size (admin only).
func (h *SettingsHandler) SetPageSize(w http.ResponseWriter, r *http.Request) {
	var req pageSizeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		jsonError(w, http.StatusBadRequest, "page_size must be between 1 and 100")
		return
	}

	if err := store.SetBrowsePageSize(r.Context(), h.DB, req.PageSize); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store page size")
		return
	}

	slog.Info("browse page size updated", "page_size", req.PageSize)
	jsonResponse(w, http.StatusOK, map[string]int{"page_size": req.PageSize})
}
