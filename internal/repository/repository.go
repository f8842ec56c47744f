package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nakatash/pokeca-search/internal/models"
)

// CatalogRepository covers the write path used by ingestion.
type CatalogRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	Ping(ctx context.Context) error
	UpsertCardSetTx(ctx context.Context, tx *gorm.DB, item *models.CardSet) error
	UpsertCardTx(ctx context.Context, tx *gorm.DB, item *models.Card) error
	// UpsertShop inserts or refreshes a shop by unique name and returns the stored row.
	UpsertShop(ctx context.Context, item *models.Shop) (*models.Shop, error)
	GetLatestCardPriceTx(ctx context.Context, tx *gorm.DB, key CardPriceKey) (*models.CardPrice, error)
	InsertCardPriceTx(ctx context.Context, tx *gorm.DB, item *models.CardPrice) error
	TouchCardPriceTx(ctx context.Context, tx *gorm.DB, id uint64, at time.Time) error
}

// SnapshotRepository covers hourly aggregation and its time series.
type SnapshotRepository interface {
	ListCardPrices(ctx context.Context, params ListCardPricesParams) ([]models.CardPrice, error)
	ListCardIDsCollectedSince(ctx context.Context, since time.Time) ([]string, error)
	UpsertPriceSnapshot(ctx context.Context, item *models.PriceSnapshot) error
	ListPriceSnapshots(ctx context.Context, params ListPriceSnapshotsParams) ([]models.PriceSnapshot, error)
	GetLatestPriceSnapshot(ctx context.Context, cardID string) (*models.PriceSnapshot, error)
}

type RankingRepository interface {
	// ReplaceRankings deletes every row of rankingType and inserts items in one transaction.
	ReplaceRankings(ctx context.Context, rankingType string, items []models.Ranking) error
	ListRankings(ctx context.Context, params ListRankingsParams) ([]RankingRow, error)
	ListStockTotals(ctx context.Context, since time.Time) ([]CardStockTotal, error)
}

type QueryRepository interface {
	SearchCards(ctx context.Context, params SearchCardsParams) ([]models.Card, error)
	CountCards(ctx context.Context, params SearchCardsParams) (int64, error)
	GetCardByID(ctx context.Context, id string) (*models.Card, error)
	GetCardSetByID(ctx context.Context, id string) (*models.CardSet, error)
	ListCurrentCardPrices(ctx context.Context, cardID string) ([]CardPriceRow, error)
	ListPopularCards(ctx context.Context, limit int) ([]models.Card, error)
}

type CollectorRunRepository interface {
	SaveCollectorRun(ctx context.Context, item *models.CollectorRun) error
	ListCollectorRuns(ctx context.Context, limit int) ([]models.CollectorRun, error)
}

type SystemSettingRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

// Repository is the unified store consumed by services and handlers.
type Repository interface {
	CatalogRepository
	SnapshotRepository
	RankingRepository
	QueryRepository
	CollectorRunRepository
	SystemSettingRepository
}

// CardPriceKey is the natural key of a price observation.
type CardPriceKey struct {
	CardID    string
	ShopID    uint64
	Condition string
}

type ListCardPricesParams struct {
	CardID      string
	Since       *time.Time
	InStockOnly bool
}

type ListPriceSnapshotsParams struct {
	CardIDs []string
	From    time.Time
	To      time.Time
}

type ListRankingsParams struct {
	Type  string
	Limit int
}

type SearchCardsParams struct {
	Limit   int
	Offset  int
	Query   *string
	SetID   *string
	Rarity  *string
	OrderBy string
	Asc     *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}

// RankingRow is a ranking joined with its card, set and latest snapshot minimum.
type RankingRow struct {
	models.Ranking
	SetID        *string `json:"set_id"`
	Number       string  `json:"number"`
	NameJP       string  `json:"name_jp"`
	NameEn       *string `json:"name_en"`
	Rarity       *string `json:"rarity"`
	ImageURL     *string `json:"image_url"`
	SetCode      *string `json:"set_code"`
	SetNameJP    *string `json:"set_name_jp"`
	CurrentPrice *int64  `json:"current_price"`
}

// CardPriceRow is a current listing joined with its shop.
type CardPriceRow struct {
	models.CardPrice
	ShopName string  `json:"shop_name"`
	ShopURL  *string `json:"shop_url"`
}

type CardStockTotal struct {
	CardID    string
	StockQty  int
	ShopCount int
}
