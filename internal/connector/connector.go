// Package connector defines the canonical listing record produced by every
// source and the contract each source adapter implements.
package connector

import (
	"context"
	"time"
)

type Condition string

const (
	ConditionMint      Condition = "mint"
	ConditionNearMint  Condition = "near_mint"
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionPlayed    Condition = "played"
	ConditionDamaged   Condition = "damaged"
)

// StorageCode maps a listing condition to the grading code stored with
// price observations.
func (c Condition) StorageCode() string {
	switch c {
	case ConditionExcellent, ConditionGood:
		return "LP"
	case ConditionPlayed:
		return "MP"
	case ConditionDamaged:
		return "HP"
	case ConditionMint, ConditionNearMint:
		return "NM"
	default:
		return ""
	}
}

type Language string

const (
	LanguageJA Language = "ja"
	LanguageEN Language = "en"
	LanguageZH Language = "zh"
	LanguageKO Language = "ko"
)

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockPreOrder   StockStatus = "pre_order"
)

type SortOption string

const (
	SortPriceAsc   SortOption = "price_asc"
	SortPriceDesc  SortOption = "price_desc"
	SortNameAsc    SortOption = "name_asc"
	SortNameDesc   SortOption = "name_desc"
	SortNewest     SortOption = "newest"
	SortPopularity SortOption = "popularity"
)

// ShopCard is one price listing as seen on a source. Prices are whole yen.
type ShopCard struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	NameEn        string      `json:"name_en,omitempty"`
	SetName       string      `json:"set_name,omitempty"`
	SetCode       string      `json:"set_code,omitempty"`
	CardNumber    string      `json:"card_number,omitempty"`
	Rarity        string      `json:"rarity,omitempty"`
	Condition     Condition   `json:"condition"`
	Language      Language    `json:"language"`
	Price         int64       `json:"price"`
	OriginalPrice *int64      `json:"original_price,omitempty"`
	DiscountRate  *float64    `json:"discount_rate,omitempty"`
	Stock         *int        `json:"stock,omitempty"`
	StockStatus   StockStatus `json:"stock_status"`
	ImageURL      string      `json:"image_url,omitempty"`
	ThumbnailURL  string      `json:"thumbnail_url,omitempty"`
	ShopName      string      `json:"shop_name"`
	ShopURL       string      `json:"shop_url"`
	LastUpdated   time.Time   `json:"last_updated"`
}

// SetOriginalPrice records the list price and derives the discount rate.
func (c *ShopCard) SetOriginalPrice(original int64) {
	if original <= 0 {
		return
	}
	c.OriginalPrice = &original
	if original > c.Price && c.Price > 0 {
		rate := float64(original-c.Price) / float64(original) * 100
		c.DiscountRate = &rate
	}
}

type SearchParams struct {
	Query     string     `json:"query"`
	SetCode   string     `json:"set_code,omitempty"`
	MinPrice  *int64     `json:"min_price,omitempty"`
	MaxPrice  *int64     `json:"max_price,omitempty"`
	Condition Condition  `json:"condition,omitempty"`
	Language  Language   `json:"language,omitempty"`
	SortBy    SortOption `json:"sort_by,omitempty"`
	Page      int        `json:"page"`
	Limit     int        `json:"limit"`
}

// Normalize fills page and limit defaults.
func (p SearchParams) Normalize(defaultLimit int) SearchParams {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	return p
}

// SearchResult is one page of listings. TotalCount is exact only when
// TotalEstimated is false; HasMore is the continuation signal callers page on.
type SearchResult struct {
	Cards          []ShopCard `json:"cards"`
	TotalCount     int        `json:"total_count"`
	TotalEstimated bool       `json:"total_estimated"`
	Page           int        `json:"page"`
	Limit          int        `json:"limit"`
	HasMore        bool       `json:"has_more"`
}

type Connector interface {
	// Source is the registry identifier, e.g. "cardrush".
	Source() string
	// ShopName is the display name listings are stored under.
	ShopName() string
	SearchCards(ctx context.Context, params SearchParams) (*SearchResult, error)
	// GetCardDetail returns nil without error when the item does not exist.
	GetCardDetail(ctx context.Context, id string) (*ShopCard, error)
}

// CheckPriceUpdates re-reads each listing and skips the ones that fail or
// no longer exist.
func CheckPriceUpdates(ctx context.Context, c Connector, ids []string) []ShopCard {
	out := make([]ShopCard, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		card, err := c.GetCardDetail(ctx, id)
		if err != nil || card == nil {
			continue
		}
		out = append(out, *card)
	}
	return out
}
