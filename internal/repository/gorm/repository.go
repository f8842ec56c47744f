package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not configured")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// conn prefers the transaction handle when one is supplied.
func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// --- catalog ----------------------------------------------------------------

func (s *Store) UpsertCardSetTx(ctx context.Context, tx *gorm.DB, item *models.CardSet) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.ID = strings.ToLower(strings.TrimSpace(item.ID))
	if item.ID == "" {
		return nil
	}
	return s.conn(ctx, tx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name_jp":      gorm.Expr("COALESCE(sets.name_jp, EXCLUDED.name_jp)"),
			"name_en":      gorm.Expr("COALESCE(sets.name_en, EXCLUDED.name_en)"),
			"release_date": gorm.Expr("COALESCE(sets.release_date, EXCLUDED.release_date)"),
			"image_url":    gorm.Expr("COALESCE(sets.image_url, EXCLUDED.image_url)"),
			"updated_at":   gorm.Expr("now()"),
		}),
	}).Create(item).Error
}

func (s *Store) UpsertCardTx(ctx context.Context, tx *gorm.DB, item *models.Card) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.ID) == "" {
		return errors.New("card id is required")
	}
	return s.conn(ctx, tx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"set_id":       gorm.Expr("COALESCE(cards.set_id, EXCLUDED.set_id)"),
			"name_en":      gorm.Expr("COALESCE(cards.name_en, EXCLUDED.name_en)"),
			"rarity":       gorm.Expr("COALESCE(cards.rarity, EXCLUDED.rarity)"),
			"image_url":    gorm.Expr("COALESCE(cards.image_url, EXCLUDED.image_url)"),
			"release_date": gorm.Expr("COALESCE(cards.release_date, EXCLUDED.release_date)"),
			"updated_at":   gorm.Expr("now()"),
		}),
	}).Create(item).Error
}

func (s *Store) UpsertShop(ctx context.Context, item *models.Shop) (*models.Shop, error) {
	if s == nil || s.db == nil || item == nil {
		return nil, nil
	}
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return nil, errors.New("shop name is required")
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"url":        gorm.Expr("COALESCE(EXCLUDED.url, shops.url)"),
			"updated_at": gorm.Expr("now()"),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}
	var stored models.Shop
	if err := s.db.WithContext(ctx).Where("name = ?", item.Name).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// --- observations -----------------------------------------------------------

func (s *Store) GetLatestCardPriceTx(ctx context.Context, tx *gorm.DB, key repository.CardPriceKey) (*models.CardPrice, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CardPrice
	err := s.conn(ctx, tx).
		Where("card_id = ? AND shop_id = ? AND condition = ?", key.CardID, key.ShopID, key.Condition).
		Order("created_at DESC").
		Order("id DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) InsertCardPriceTx(ctx context.Context, tx *gorm.DB, item *models.CardPrice) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) TouchCardPriceTx(ctx context.Context, tx *gorm.DB, id uint64, at time.Time) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.conn(ctx, tx).Model(&models.CardPrice{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"updated_at":   at,
			"collected_at": at,
		}).Error
}

func (s *Store) ListCardPrices(ctx context.Context, params repository.ListCardPricesParams) ([]models.CardPrice, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.CardPrice{})
	if id := strings.TrimSpace(params.CardID); id != "" {
		query = query.Where("card_id = ?", id)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("collected_at >= ?", *params.Since)
	}
	if params.InStockOnly {
		query = query.Where("stock_qty > 0")
	}
	var items []models.CardPrice
	if err := query.Order("collected_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListCardIDsCollectedSince(ctx context.Context, since time.Time) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.CardPrice{}).
		Distinct("card_id").
		Where("collected_at >= ?", since).
		Order("card_id").
		Pluck("card_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// --- snapshots --------------------------------------------------------------

func (s *Store) UpsertPriceSnapshot(ctx context.Context, item *models.PriceSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "card_id"}, {Name: "ts"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"min_jpy",
			"median_jpy",
			"max_jpy",
			"shop_count",
		}),
	}).Create(item).Error
}

func (s *Store) ListPriceSnapshots(ctx context.Context, params repository.ListPriceSnapshotsParams) ([]models.PriceSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PriceSnapshot{})
	if ids := cleanStrings(params.CardIDs); len(ids) > 0 {
		query = query.Where("card_id IN ?", ids)
	}
	if !params.From.IsZero() {
		query = query.Where("ts >= ?", params.From)
	}
	if !params.To.IsZero() {
		query = query.Where("ts <= ?", params.To)
	}
	var items []models.PriceSnapshot
	if err := query.Order("card_id ASC").Order("ts ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetLatestPriceSnapshot(ctx context.Context, cardID string) (*models.PriceSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PriceSnapshot
	err := s.db.WithContext(ctx).Where("card_id = ?", cardID).Order("ts DESC").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- collector runs ---------------------------------------------------------

func (s *Store) SaveCollectorRun(ctx context.Context, item *models.CollectorRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) ListCollectorRuns(ctx context.Context, limit int) ([]models.CollectorRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.CollectorRun
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(normalizeLimit(limit, 20)).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.systemSettingsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	var items []models.SystemSetting
	if err := query.Limit(normalizeLimit(params.Limit, 500)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.systemSettingsQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) systemSettingsQuery(ctx context.Context, params repository.ListSystemSettingsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	return query
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
