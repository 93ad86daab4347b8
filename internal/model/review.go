package model

import (
	"math"
	"time"
)

// Review is a one-time rating of a seller by another user. A reviewer can
// review a given seller at most once, and reviews are immutable.
type Review struct {
	ID           int64     `json:"id"`
	SellerID     int64     `json:"seller_id"`
	ReviewerID   int64     `json:"reviewer_id"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// SellerStats aggregates ratings for one seller. Average is nil when the
// seller has no reviews, never zero.
type SellerStats struct {
	Count   int      `json:"count"`
	Average *float64 `json:"average,omitempty"`
}

// StarBreakdown is the five-slot star rendering of an average rating.
type StarBreakdown struct {
	Full  int `json:"full"`
	Half  int `json:"half"`
	Empty int `json:"empty"`
}

// Stars projects an average rating onto full/half/empty star slots:
// full stars for the integer part, a half star when the remainder reaches
// 0.5. Display-only, never stored.
func Stars(average float64) StarBreakdown {
	full := int(math.Floor(average))
	half := 0
	if average-float64(full) >= 0.5 {
		half = 1
	}
	return StarBreakdown{
		Full:  full,
		Half:  half,
		Empty: MaxRating - full - half,
	}
}

// Stars returns the star breakdown for the stats' average, or all empty
// slots when there are no reviews.
func (s SellerStats) Stars() StarBreakdown {
	if s.Average == nil {
		return StarBreakdown{Empty: MaxRating}
	}
	return Stars(*s.Average)
}
