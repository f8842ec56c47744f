package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

type SnapshotResult struct {
	Cards   int `json:"cards"`
	Created int `json:"created"`
	Empty   int `json:"empty"`
	Failed  int `json:"failed"`
}

// CreatePriceSnapshot aggregates the card's in-stock observations collected
// in the current hour and replaces the (card, hour) snapshot. It returns nil
// when there is nothing to aggregate.
func (s *IngestionService) CreatePriceSnapshot(ctx context.Context, cardID string) (*models.PriceSnapshot, error) {
	if s == nil || s.Store == nil {
		return nil, ErrStoreUnavailable
	}
	bucket := s.now().Truncate(time.Hour)
	prices, err := s.Store.ListCardPrices(ctx, repository.ListCardPricesParams{
		CardID:      cardID,
		Since:       &bucket,
		InStockOnly: true,
	})
	if err != nil {
		return nil, err
	}
	snap := aggregateSnapshot(cardID, bucket, prices)
	if snap == nil {
		return nil, nil
	}
	if err := s.Store.UpsertPriceSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// CreateAllSnapshots snapshots every card observed in the current hour. A
// failing card is logged and skipped.
func (s *IngestionService) CreateAllSnapshots(ctx context.Context) (SnapshotResult, error) {
	var result SnapshotResult
	if s == nil || s.Store == nil {
		return result, ErrStoreUnavailable
	}
	bucket := s.now().Truncate(time.Hour)
	ids, err := s.Store.ListCardIDsCollectedSince(ctx, bucket)
	if err != nil {
		return result, err
	}
	result.Cards = len(ids)
	for _, id := range ids {
		snap, err := s.CreatePriceSnapshot(ctx, id)
		switch {
		case err != nil:
			result.Failed++
			s.warn("snapshot failed", zap.String("card_id", id), zap.Error(err))
		case snap == nil:
			result.Empty++
		default:
			result.Created++
		}
	}
	return result, nil
}

func aggregateSnapshot(cardID string, bucket time.Time, prices []models.CardPrice) *models.PriceSnapshot {
	totals := make([]int64, 0, len(prices))
	shops := make(map[uint64]struct{})
	for _, p := range prices {
		if p.StockQty != nil && *p.StockQty <= 0 {
			continue
		}
		totals = append(totals, p.TotalJPY())
		shops[p.ShopID] = struct{}{}
	}
	if len(totals) == 0 {
		return nil
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i] < totals[j] })
	return &models.PriceSnapshot{
		CardID:    cardID,
		TS:        bucket,
		MinJPY:    totals[0],
		MedianJPY: median(totals),
		MaxJPY:    totals[len(totals)-1],
		ShopCount: len(shops),
	}
}

// median expects sorted input; even-length input averages the middle pair.
func median(sorted []int64) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return decimal.NewFromInt(sorted[n/2])
	}
	sum := decimal.NewFromInt(sorted[n/2-1]).Add(decimal.NewFromInt(sorted[n/2]))
	return sum.Div(decimal.NewFromInt(2))
}
