package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot aggregates one card's in-stock observations for an hour bucket.
type PriceSnapshot struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CardID    string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_price_snapshots_card_ts,priority:1" json:"card_id"`
	TS        time.Time       `gorm:"column:ts;type:timestamptz;not null;uniqueIndex:ux_price_snapshots_card_ts,priority:2;index;comment:hour bucket start" json:"ts"`
	MinJPY    int64           `gorm:"column:min_jpy;not null" json:"min_jpy"`
	MedianJPY decimal.Decimal `gorm:"column:median_jpy;type:numeric(14,2);not null" json:"median_jpy"`
	MaxJPY    int64           `gorm:"column:max_jpy;not null" json:"max_jpy"`
	ShopCount int             `gorm:"not null" json:"shop_count"`
}

func (PriceSnapshot) TableName() string {
	return "price_snapshots"
}
