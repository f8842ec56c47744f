package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

func (s *Store) SearchCards(ctx context.Context, params repository.SearchCardsParams) ([]models.Card, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.cardsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "updated_at")
	var items []models.Card
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountCards(ctx context.Context, params repository.SearchCardsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.cardsQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) cardsQuery(ctx context.Context, params repository.SearchCardsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Card{})
	if params.Query != nil && strings.TrimSpace(*params.Query) != "" {
		pattern := "%" + strings.TrimSpace(*params.Query) + "%"
		query = query.Where("name_jp ILIKE ? OR name_en ILIKE ? OR number ILIKE ?", pattern, pattern, pattern)
	}
	if params.SetID != nil && strings.TrimSpace(*params.SetID) != "" {
		query = query.Where("set_id = ?", strings.ToLower(strings.TrimSpace(*params.SetID)))
	}
	if params.Rarity != nil && strings.TrimSpace(*params.Rarity) != "" {
		query = query.Where("rarity = ?", strings.TrimSpace(*params.Rarity))
	}
	return query
}

func (s *Store) GetCardByID(ctx context.Context, id string) (*models.Card, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Card
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetCardSetByID(ctx context.Context, id string) (*models.CardSet, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CardSet
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListCurrentCardPrices returns the latest in-stock row per (shop, condition),
// cheapest total first.
func (s *Store) ListCurrentCardPrices(ctx context.Context, cardID string) ([]repository.CardPriceRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.CardPriceRow
	err := s.db.WithContext(ctx).Raw(`
SELECT latest.*, sh.name AS shop_name, sh.url AS shop_url
FROM (
    SELECT DISTINCT ON (shop_id, condition) *
    FROM card_prices
    WHERE card_id = ?
    ORDER BY shop_id, condition, created_at DESC, id DESC
) latest
JOIN shops sh ON sh.id = latest.shop_id
WHERE latest.stock_qty > 0
ORDER BY latest.price_jpy + latest.shipping_jpy ASC`, strings.TrimSpace(cardID)).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListPopularCards(ctx context.Context, limit int) ([]models.Card, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Card
	err := s.db.WithContext(ctx).
		Model(&models.Card{}).
		Select("cards.*").
		Joins("LEFT JOIN card_prices cp ON cp.card_id = cards.id").
		Group("cards.id").
		Order("COUNT(cp.id) DESC").
		Order("cards.updated_at DESC").
		Limit(normalizeLimit(limit, 20)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
