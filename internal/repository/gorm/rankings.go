package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

func (s *Store) ReplaceRankings(ctx context.Context, rankingType string, items []models.Ranking) error {
	if s == nil || s.db == nil {
		return nil
	}
	rankingType = strings.TrimSpace(rankingType)
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("type = ?", rankingType).Delete(&models.Ranking{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.CreateInBatches(items, 200).Error
	})
}

const rankingRowsSQL = `
SELECT r.*,
       c.set_id, c.number, c.name_jp, c.name_en, c.rarity, c.image_url,
       st.code AS set_code, st.name_jp AS set_name_jp,
       ps.min_jpy AS current_price
FROM rankings r
LEFT JOIN cards c ON r.card_id = c.id
LEFT JOIN sets st ON c.set_id = st.id
LEFT JOIN LATERAL (
    SELECT min_jpy FROM price_snapshots
    WHERE card_id = r.card_id
    ORDER BY ts DESC
    LIMIT 1
) ps ON true
WHERE r.type = ?
ORDER BY r.rank ASC
LIMIT ?`

func (s *Store) ListRankings(ctx context.Context, params repository.ListRankingsParams) ([]repository.RankingRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.RankingRow
	err := s.db.WithContext(ctx).
		Raw(rankingRowsSQL, strings.TrimSpace(params.Type), normalizeLimit(params.Limit, 50)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListStockTotals(ctx context.Context, since time.Time) ([]repository.CardStockTotal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.CardStockTotal
	err := s.db.WithContext(ctx).Raw(`
SELECT latest.card_id, SUM(latest.stock_qty) AS stock_qty, COUNT(DISTINCT latest.shop_id) AS shop_count
FROM (
    SELECT DISTINCT ON (card_id, shop_id, condition) card_id, shop_id, stock_qty
    FROM card_prices
    WHERE collected_at >= ?
    ORDER BY card_id, shop_id, condition, created_at DESC, id DESC
) latest
WHERE latest.stock_qty > 0
GROUP BY latest.card_id`, since).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
