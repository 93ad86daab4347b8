package model

import "time"

// WishlistItem is a saved listing together with when the user saved it.
type WishlistItem struct {
	Item
	AddedAt time.Time `json:"added_at"`
}
