package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"tradepost/internal/model"
	"tradepost/internal/store"
)

// ConversationsHandler handles buyer-seller messaging endpoints.
type ConversationsHandler struct {
	DB *sql.DB
}

type postMessageRequest struct {
	Body string `json:"body"`
}

// Contact handles POST /api/items/{id}/contact: opens (or finds) the
// caller's conversation with the item's seller, optionally sending a first
// message in the same request.
func (h *ConversationsHandler) Contact(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req postMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	conversation, err := store.OpenConversation(r.Context(), h.DB, itemID, claims.UserID)
	if err != nil {
		storeError(w, err, "failed to open conversation")
		return
	}

	if req.Body != "" {
		if _, err := store.AddMessage(r.Context(), h.DB, conversation.ID, claims.UserID, req.Body); err != nil {
			storeError(w, err, "failed to send message")
			return
		}
	}

	jsonResponse(w, http.StatusCreated, conversation)
}

// inboxEntry annotates a conversation with the other participant, so the
// client never has to work out which side the caller is on.
type inboxEntry struct {
	model.Conversation
	CounterpartID   int64  `json:"counterpart_id"`
	CounterpartName string `json:"counterpart_name"`
}

// Inbox handles GET /api/conversations: the caller's conversations, most
// recent activity first.
func (h *ConversationsHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	conversations, err := store.ListInbox(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	entries := make([]inboxEntry, len(conversations))
	for i, c := range conversations {
		entries[i] = inboxEntry{Conversation: c, CounterpartID: c.Counterpart(claims.UserID)}
		if entries[i].CounterpartID == c.SellerID {
			entries[i].CounterpartName = c.SellerName
		} else {
			entries[i].CounterpartName = c.BuyerName
		}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Get handles GET /api/conversations/{id}: the conversation with its full
// message log, participants only.
func (h *ConversationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	claims := GetClaims(r.Context())
	messages, err := store.ListMessages(r.Context(), h.DB, id, claims.UserID)
	if err != nil {
		storeError(w, err, "failed to list messages")
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}

	conversation, err := store.GetConversation(r.Context(), h.DB, id)
	if err != nil || conversation == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"conversation": conversation,
		"messages":     messages,
	})
}

// PostMessage handles POST /api/conversations/{id}/messages.
func (h *ConversationsHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req postMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	message, err := store.AddMessage(r.Context(), h.DB, id, claims.UserID, req.Body)
	if err != nil {
		storeError(w, err, "failed to send message")
		return
	}

	jsonResponse(w, http.StatusCreated, message)
}
