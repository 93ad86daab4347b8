package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tradepost/internal/model"
)

// OpenConversation finds or creates the conversation for (item, item's
// seller, buyer). Returns ErrNotFound for an unknown item and
// ErrSelfConversation when the buyer is the item's seller. The find-or-create
// is atomic: the INSERT is a no-op when the row exists and the re-select
// returns whichever row won, so concurrent first-contact requests cannot
// create duplicates.
func OpenConversation(ctx context.Context, db *sql.DB, itemID, buyerID int64) (*model.Conversation, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var sellerID int64
	err = tx.QueryRowContext(ctx,
		`SELECT seller_id FROM items WHERE id = ?`, itemID,
	).Scan(&sellerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item seller: %w", err)
	}

	if sellerID == buyerID {
		return nil, ErrSelfConversation
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (item_id, seller_id, buyer_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (item_id, seller_id, buyer_id) DO NOTHING`,
		itemID, sellerID, buyerID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	conversation := &model.Conversation{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, item_id, seller_id, buyer_id, created_at, updated_at
		 FROM conversations WHERE item_id = ? AND seller_id = ? AND buyer_id = ?`,
		itemID, sellerID, buyerID,
	).Scan(&conversation.ID, &conversation.ItemID, &conversation.SellerID,
		&conversation.BuyerID, &conversation.CreatedAt, &conversation.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing conversation: %w", err)
	}
	return conversation, nil
}

// GetConversation returns a conversation by ID with item title and
// participant names joined in.
func GetConversation(ctx context.Context, db *sql.DB, id int64) (*model.Conversation, error) {
	c := &model.Conversation{}
	err := db.QueryRowContext(ctx,
		`SELECT c.id, c.item_id, c.seller_id, c.buyer_id, c.created_at, c.updated_at,
		        i.title AS item_title, s.username AS seller_name, b.username AS buyer_name
		 FROM conversations c
		 JOIN items i ON i.id = c.item_id
		 JOIN users s ON s.id = c.seller_id
		 JOIN users b ON b.id = c.buyer_id
		 WHERE c.id = ?`, id,
	).Scan(&c.ID, &c.ItemID, &c.SellerID, &c.BuyerID, &c.CreatedAt, &c.UpdatedAt,
		&c.ItemTitle, &c.SellerName, &c.BuyerName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return c, nil
}

// AddMessage appends a message to a conversation and bumps the
// conversation's recency in the same transaction, so a reader never sees a
// bumped conversation without its message. Returns ErrEmptyBody for
// empty/whitespace bodies, ErrNotFound for an unknown conversation and
// ErrNotParticipant when the sender is neither buyer nor seller.
func AddMessage(ctx context.Context, db *sql.DB, conversationID, senderID int64, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var sellerID, buyerID int64
	err = tx.QueryRowContext(ctx,
		`SELECT seller_id, buyer_id FROM conversations WHERE id = ?`, conversationID,
	).Scan(&sellerID, &buyerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation participants: %w", err)
	}

	if senderID != sellerID && senderID != buyerID {
		return nil, ErrNotParticipant
	}

	// Server-assigned timestamp, shared by the message and the bump so the
	// conversation surfaces exactly as new as its latest message.
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, body, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, senderID, body, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting message id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		now, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("bumping conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	return &model.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      now,
	}, nil
}

// ListInbox returns all conversations where the user is buyer or seller,
// most recent activity first, each with its latest message preview.
func ListInbox(ctx context.Context, db *sql.DB, userID int64) ([]model.Conversation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.item_id, c.seller_id, c.buyer_id, c.created_at, c.updated_at,
		        i.title AS item_title, s.username AS seller_name, b.username AS buyer_name,
		        COALESCE((SELECT m.body FROM messages m WHERE m.conversation_id = c.id
		                  ORDER BY m.created_at DESC, m.id DESC LIMIT 1), '') AS last_message
		 FROM conversations c
		 JOIN items i ON i.id = c.item_id
		 JOIN users s ON s.id = c.seller_id
		 JOIN users b ON b.id = c.buyer_id
		 WHERE c.seller_id = ? OR c.buyer_id = ?
		 ORDER BY c.updated_at DESC, c.id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inbox: %w", err)
	}
	defer rows.Close()

	var conversations []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.ItemID, &c.SellerID, &c.BuyerID, &c.CreatedAt,
			&c.UpdatedAt, &c.ItemTitle, &c.SellerName, &c.BuyerName, &c.LastMessage); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// ListMessages returns a conversation's messages in log order (oldest
// first), restricted to participants. Returns ErrNotFound for an unknown
// conversation and ErrNotParticipant for outsiders.
func ListMessages(ctx context.Context, db *sql.DB, conversationID, userID int64) ([]model.Message, error) {
	conversation, err := GetConversation(ctx, db, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrNotFound
	}
	if !conversation.Participant(userID) {
		return nil, ErrNotParticipant
	}

	rows, err := db.QueryContext(ctx,
		`SELECT m.id, m.conversation_id, m.sender_id, m.body, m.created_at,
		        u.username AS sender_name
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.conversation_id = ?
		 ORDER BY m.created_at ASC, m.id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body,
			&m.CreatedAt, &m.SenderName); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
