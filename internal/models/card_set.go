package models

import "time"

// CardSet is keyed by the lower-cased set code.
type CardSet struct {
	ID          string     `gorm:"primaryKey;type:varchar(32);comment:set code" json:"id"`
	Code        string     `gorm:"type:varchar(32);not null;index;comment:set code as printed" json:"code"`
	NameJP      *string    `gorm:"column:name_jp;type:text;comment:japanese name" json:"name_jp"`
	NameEn      *string    `gorm:"column:name_en;type:text;comment:english name" json:"name_en"`
	ReleaseDate *time.Time `gorm:"type:date;comment:release date" json:"release_date"`
	ImageURL    *string    `gorm:"type:text;comment:logo or symbol url" json:"image_url"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (CardSet) TableName() string {
	return "sets"
}
