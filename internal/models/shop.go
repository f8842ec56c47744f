package models

import (
	"time"

	"gorm.io/datatypes"
)

type Shop struct {
	ID               uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string         `gorm:"type:varchar(120);not null;uniqueIndex;comment:display name" json:"name"`
	URL              *string        `gorm:"type:text;comment:scheme://host of the storefront" json:"url"`
	IsVerified       bool           `gorm:"not null;default:false" json:"is_verified"`
	AffiliateProgram *string        `gorm:"type:text" json:"affiliate_program"`
	AffiliateID      *string        `gorm:"type:text" json:"affiliate_id"`
	ShippingPolicy   datatypes.JSON `gorm:"type:jsonb" json:"shipping_policy"`
	ReturnPolicy     datatypes.JSON `gorm:"type:jsonb" json:"return_policy"`
	CreatedAt        time.Time      `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Shop) TableName() string {
	return "shops"
}
