package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RankingSpike24h = "spike_24h"
	RankingDrop24h  = "drop_24h"
	RankingSpike7d  = "spike_7d"
	RankingDrop7d   = "drop_7d"
	RankingLowStock = "low_stock"
)

func RankingTypes() []string {
	return []string{RankingSpike24h, RankingDrop24h, RankingSpike7d, RankingDrop7d, RankingLowStock}
}

func IsRankingType(v string) bool {
	for _, t := range RankingTypes() {
		if t == v {
			return true
		}
	}
	return false
}

type Ranking struct {
	ID              uint64              `gorm:"primaryKey;autoIncrement" json:"id"`
	CardID          string              `gorm:"type:varchar(64);not null;uniqueIndex:ux_rankings_card_type,priority:1" json:"card_id"`
	Type            string              `gorm:"type:varchar(16);not null;uniqueIndex:ux_rankings_card_type,priority:2;index:idx_rankings_type_rank,priority:1" json:"type"`
	DeltaPercent24h decimal.NullDecimal `gorm:"column:delta_percent_24h;type:numeric(10,2)" json:"delta_percent_24h"`
	DeltaPercent7d  decimal.NullDecimal `gorm:"column:delta_percent_7d;type:numeric(10,2)" json:"delta_percent_7d"`
	StockQty        *int                `gorm:"comment:total listed stock, low_stock only" json:"stock_qty"`
	Rank            int                 `gorm:"not null;index:idx_rankings_type_rank,priority:2" json:"rank"`
	UpdatedAt       time.Time           `gorm:"type:timestamptz;not null" json:"updated_at"`
}

func (Ranking) TableName() string {
	return "rankings"
}
