package models

import "time"

// CardPrice is one stored observation for (card, shop, condition). Rows are
// appended when the price moves materially; otherwise the latest row's
// timestamps are refreshed.
type CardPrice struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CardID      string    `gorm:"type:varchar(64);not null;index:idx_card_prices_key,priority:1;comment:cards.id" json:"card_id"`
	ShopID      uint64    `gorm:"not null;index:idx_card_prices_key,priority:2;comment:shops.id" json:"shop_id"`
	Condition   string    `gorm:"type:varchar(8);not null;default:NM;index:idx_card_prices_key,priority:3;comment:NM/LP/MP/HP" json:"condition"`
	GradeType   *string   `gorm:"type:varchar(16)" json:"grade_type"`
	GradeValue  *string   `gorm:"type:varchar(16)" json:"grade_value"`
	PriceJPY    int64     `gorm:"column:price_jpy;not null" json:"price_jpy"`
	ShippingJPY int64     `gorm:"column:shipping_jpy;not null;default:0" json:"shipping_jpy"`
	StockQty    *int      `gorm:"comment:null when the source does not expose counts" json:"stock_qty"`
	EtaDays     *int      `gorm:"" json:"eta_days"`
	URL         *string   `gorm:"type:text;comment:listing url" json:"url"`
	CollectedAt time.Time `gorm:"type:timestamptz;not null;index" json:"collected_at"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;index:idx_card_prices_key,priority:4" json:"created_at"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null" json:"updated_at"`
}

func (CardPrice) TableName() string {
	return "card_prices"
}

func (p CardPrice) TotalJPY() int64 {
	return p.PriceJPY + p.ShippingJPY
}
