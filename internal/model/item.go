package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item represents a single marketplace listing. The seller is fixed at
// creation time. CategoryName and SellerName are joined in on reads for
// display and are not stored on the item itself.
type Item struct {
	ID           int64           `json:"id"`
	PublicID     string          `json:"public_id"`
	SellerID     int64           `json:"seller_id"`
	SellerName   string          `json:"seller_name,omitempty"`
	CategoryID   *int64          `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Condition    string          `json:"condition"`
	IsSold       bool            `json:"is_sold"`
	ImageMime    string          `json:"image_mime,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Item conditions.
const (
	ConditionNew      = "new"
	ConditionUsedGood = "used_good"
	ConditionUsedFair = "used_fair"
)

// ValidCondition reports whether condition is a known item condition.
func ValidCondition(condition string) bool {
	switch condition {
	case ConditionNew, ConditionUsedGood, ConditionUsedFair:
		return true
	}
	return false
}

// SellerDashboard aggregates a seller's listing metrics.
type SellerDashboard struct {
	TotalItems    int             `json:"total_items"`
	SoldItems     int             `json:"sold_items"`
	Revenue       decimal.Decimal `json:"revenue"`
	ActiveRevenue decimal.Decimal `json:"active_revenue"`
}
