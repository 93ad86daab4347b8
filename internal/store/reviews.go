package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tradepost/internal/model"
)

// CreateReview records a one-time review of a seller. Returns
// ErrInvalidRating outside 1..5, ErrSelfReview when reviewer and seller
// match, ErrNotFound for an unknown seller and ErrDuplicateReview when the
// reviewer already reviewed this seller (the stored review is untouched).
func CreateReview(ctx context.Context, db *sql.DB, sellerID, reviewerID int64, rating int, comment string) (*model.Review, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, ErrInvalidRating
	}
	if sellerID == reviewerID {
		return nil, ErrSelfReview
	}

	seller, err := GetUser(ctx, db, sellerID)
	if err != nil {
		return nil, err
	}
	if seller == nil || seller.DeletedAt != nil {
		return nil, ErrNotFound
	}

	// The UNIQUE(seller_id, reviewer_id) constraint decides the race when
	// the same reviewer double-submits concurrently.
	result, err := db.ExecContext(ctx,
		`INSERT INTO reviews (seller_id, reviewer_id, rating, comment, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sellerID, reviewerID, rating, strings.TrimSpace(comment), time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateReview
		}
		return nil, fmt.Errorf("creating review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting review id: %w", err)
	}

	return GetReview(ctx, db, id)
}

// GetReview returns a review by ID.
func GetReview(ctx context.Context, db *sql.DB, id int64) (*model.Review, error) {
	r := &model.Review{}
	err := db.QueryRowContext(ctx,
		`SELECT r.id, r.seller_id, r.reviewer_id, r.rating, r.comment, r.created_at,
		        u.username AS reviewer_name
		 FROM reviews r
		 JOIN users u ON u.id = r.reviewer_id
		 WHERE r.id = ?`, id,
	).Scan(&r.ID, &r.SellerID, &r.ReviewerID, &r.Rating, &r.Comment, &r.CreatedAt,
		&r.ReviewerName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting review: %w", err)
	}
	return r, nil
}

// SellerStats returns a seller's rating count and average. The average is
// absent (nil) when the seller has no reviews.
func SellerStats(ctx context.Context, db *sql.DB, sellerID int64) (model.SellerStats, error) {
	var count int
	var average sql.NullFloat64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(rating) FROM reviews WHERE seller_id = ?`, sellerID,
	).Scan(&count, &average)
	if err != nil {
		return model.SellerStats{}, fmt.Errorf("getting seller stats: %w", err)
	}

	stats := model.SellerStats{Count: count}
	if average.Valid {
		stats.Average = &average.Float64
	}
	return stats, nil
}

// SellerStatsBatch returns stats for every seller in sellerIDs with a
// single grouped query. Sellers without reviews are present in the result
// with a zero count and absent average.
func SellerStatsBatch(ctx context.Context, db *sql.DB, sellerIDs []int64) (map[int64]model.SellerStats, error) {
	stats := make(map[int64]model.SellerStats, len(sellerIDs))
	for _, id := range sellerIDs {
		stats[id] = model.SellerStats{}
	}
	if len(sellerIDs) == 0 {
		return stats, nil
	}

	placeholders := strings.Repeat("?,", len(sellerIDs)-1) + "?"
	args := make([]any, len(sellerIDs))
	for i, id := range sellerIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx,
		`SELECT seller_id, COUNT(*), AVG(rating) FROM reviews
		 WHERE seller_id IN (`+placeholders+`) GROUP BY seller_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("getting seller stats batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sellerID int64
		var count int
		var average float64
		if err := rows.Scan(&sellerID, &count, &average); err != nil {
			return nil, fmt.Errorf("scanning seller stats: %w", err)
		}
		stats[sellerID] = model.SellerStats{Count: count, Average: &average}
	}
	return stats, rows.Err()
}

// ListSellerReviews returns a seller's most recent reviews.
func ListSellerReviews(ctx context.Context, db *sql.DB, sellerID int64, limit int) ([]model.Review, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.seller_id, r.reviewer_id, r.rating, r.comment, r.created_at,
		        u.username AS reviewer_name
		 FROM reviews r
		 JOIN users u ON u.id = r.reviewer_id
		 WHERE r.seller_id = ?
		 ORDER BY r.created_at DESC, r.id DESC LIMIT ?`,
		sellerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing seller reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.SellerID, &r.ReviewerID, &r.Rating, &r.Comment,
			&r.CreatedAt, &r.ReviewerName); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
