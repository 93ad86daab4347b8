package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"tradepost/internal/store"
)

// validate checks request structs against their validate tags.
var validate = validator.New()

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding response: %v", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// storeError maps store sentinel errors to HTTP responses. Anything
// unrecognized becomes a 500 with the given fallback message.
func storeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrSelfConversation):
		jsonError(w, http.StatusForbidden, "cannot contact yourself about your own listing")
	case errors.Is(err, store.ErrNotParticipant):
		jsonError(w, http.StatusForbidden, "not a participant in this conversation")
	case errors.Is(err, store.ErrSelfReview):
		jsonError(w, http.StatusForbidden, "cannot review yourself")
	case errors.Is(err, store.ErrEmptyBody):
		jsonError(w, http.StatusBadRequest, "message body must not be empty")
	case errors.Is(err, store.ErrInvalidRating):
		jsonError(w, http.StatusBadRequest, "rating must be between 1 and 5")
	case errors.Is(err, store.ErrInvalidPrice):
		jsonError(w, http.StatusBadRequest, "price must be non-negative with at most two decimal places")
	case errors.Is(err, store.ErrDuplicateReview):
		jsonError(w, http.StatusConflict, "seller already reviewed")
	case errors.Is(err, store.ErrSlugTaken):
		jsonError(w, http.StatusConflict, "category already exists")
	default:
		jsonError(w, http.StatusInternalServerError, fallback)
	}
}
