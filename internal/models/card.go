package models

import "time"

type Card struct {
	ID          string     `gorm:"primaryKey;type:varchar(64);comment:{setCode}-{cardNumber}" json:"id"`
	SetID       *string    `gorm:"type:varchar(32);index;comment:sets.id" json:"set_id"`
	Number      string     `gorm:"type:varchar(32);not null;comment:card number" json:"number"`
	NameJP      string     `gorm:"column:name_jp;type:text;not null;comment:japanese name" json:"name_jp"`
	NameEn      *string    `gorm:"column:name_en;type:text;comment:english name" json:"name_en"`
	Rarity      *string    `gorm:"type:varchar(16);index;comment:rarity code" json:"rarity"`
	ImageURL    *string    `gorm:"type:text;comment:image url" json:"image_url"`
	ReleaseDate *time.Time `gorm:"type:date;comment:release date" json:"release_date"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"type:timestamptz;autoUpdateTime;index" json:"updated_at"`
}

func (Card) TableName() string {
	return "cards"
}
