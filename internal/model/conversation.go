package model

import "time"

// Conversation is a persistent message thread scoped to exactly one
// (item, seller, buyer) triple. ItemTitle, the participant names and
// LastMessage are joined in for inbox display.
type Conversation struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	SellerID    int64     `json:"seller_id"`
	BuyerID     int64     `json:"buyer_id"`
	ItemTitle   string    `json:"item_title,omitempty"`
	SellerName  string    `json:"seller_name,omitempty"`
	BuyerName   string    `json:"buyer_name,omitempty"`
	LastMessage string    `json:"last_message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Participant reports whether userID is the conversation's buyer or seller.
func (c *Conversation) Participant(userID int64) bool {
	return userID == c.BuyerID || userID == c.SellerID
}

// Counterpart returns the other participant's ID relative to userID.
func (c *Conversation) Counterpart(userID int64) int64 {
	if userID == c.BuyerID {
		return c.SellerID
	}
	return c.BuyerID
}

// Message is a single entry in a conversation's append-only log.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}
