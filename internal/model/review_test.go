package model

import "testing"

func TestStars(t *testing.T) {
	tests := []struct {
		average           float64
		full, half, empty int
	}{
		{5.0, 5, 0, 0},
		{4.0, 4, 0, 1},
		{4.5, 4, 1, 0},
		{4.4, 4, 0, 1},
		{3.75, 3, 1, 1},
		{1.0, 1, 0, 4},
		{0.0, 0, 0, 5},
	}

	for _, tt := range tests {
		got := Stars(tt.average)
		if got.Full != tt.full || got.Half != tt.half || got.Empty != tt.empty {
			t.Errorf("Stars(%v) = %+v, expected full=%d half=%d empty=%d",
				tt.average, got, tt.full, tt.half, tt.empty)
		}
	}
}

func TestSellerStatsStarsNoReviews(t *testing.T) {
	stats := SellerStats{}
	got := stats.Stars()
	if got.Full != 0 || got.Half != 0 || got.Empty != MaxRating {
		t.Errorf("expected all empty stars without reviews, got %+v", got)
	}
}
