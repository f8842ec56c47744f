package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

const (
	defaultRankingTopN   = 100
	defaultCurrentWindow = time.Hour
	defaultWindowMargin  = time.Hour
	defaultRankingLimit  = 50
	// lowStockLookback bounds which listings count as current for low_stock.
	lowStockLookback = 24 * time.Hour
)

var ErrUnknownRankingType = errors.New("unknown ranking type")

// RankingCache is an optional read-through cache in front of ListRankings.
type RankingCache interface {
	GetRanking(ctx context.Context, rankingType string, limit int) ([]repository.RankingRow, bool)
	SetRanking(ctx context.Context, rankingType string, limit int, rows []repository.RankingRow)
	InvalidateRanking(ctx context.Context, rankingType string)
}

type RankingStore interface {
	repository.SnapshotRepository
	repository.RankingRepository
}

type RankingService struct {
	Store  RankingStore
	Cache  RankingCache
	Logger *zap.Logger

	TopN          int
	CurrentWindow time.Duration
	WindowMargin  time.Duration
	DefaultLimit  int
	Now           func() time.Time
}

// RankingUpdate is the outcome of rebuilding one ranking type.
type RankingUpdate struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

type movement struct {
	cardID string
	delta  decimal.Decimal
}

// UpdateRankings rebuilds rankingType from snapshot history and replaces the
// stored set in one step. It returns the number of ranked cards.
func (s *RankingService) UpdateRankings(ctx context.Context, rankingType string) (int, error) {
	if s == nil || s.Store == nil {
		return 0, ErrStoreUnavailable
	}
	rankingType = strings.TrimSpace(rankingType)
	if !models.IsRankingType(rankingType) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownRankingType, rankingType)
	}
	now := s.now()

	var items []models.Ranking
	var err error
	if rankingType == models.RankingLowStock {
		items, err = s.lowStock(ctx, now)
	} else {
		items, err = s.movers(ctx, rankingType, now)
	}
	if err != nil {
		return 0, err
	}
	if err := s.Store.ReplaceRankings(ctx, rankingType, items); err != nil {
		return 0, err
	}
	if s.Cache != nil {
		s.Cache.InvalidateRanking(ctx, rankingType)
	}
	if s.Logger != nil {
		s.Logger.Info("rankings updated", zap.String("type", rankingType), zap.Int("count", len(items)))
	}
	return len(items), nil
}

// UpdateAllRankings rebuilds every type; a failing type does not stop the rest.
func (s *RankingService) UpdateAllRankings(ctx context.Context) []RankingUpdate {
	types := models.RankingTypes()
	out := make([]RankingUpdate, 0, len(types))
	for _, t := range types {
		n, err := s.UpdateRankings(ctx, t)
		res := RankingUpdate{Type: t, Count: n}
		if err != nil {
			res.Error = err.Error()
			if s != nil && s.Logger != nil {
				s.Logger.Warn("ranking update failed", zap.String("type", t), zap.Error(err))
			}
		}
		out = append(out, res)
	}
	return out
}

// GetRanking reads a stored ranking ordered by rank.
func (s *RankingService) GetRanking(ctx context.Context, rankingType string, limit int) ([]repository.RankingRow, error) {
	if s == nil || s.Store == nil {
		return nil, ErrStoreUnavailable
	}
	rankingType = strings.TrimSpace(rankingType)
	if !models.IsRankingType(rankingType) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRankingType, rankingType)
	}
	if limit <= 0 {
		limit = s.DefaultLimit
		if limit <= 0 {
			limit = defaultRankingLimit
		}
	}
	if s.Cache != nil {
		if rows, ok := s.Cache.GetRanking(ctx, rankingType, limit); ok {
			return rows, nil
		}
	}
	rows, err := s.Store.ListRankings(ctx, repository.ListRankingsParams{Type: rankingType, Limit: limit})
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.SetRanking(ctx, rankingType, limit, rows)
	}
	return rows, nil
}

func (s *RankingService) movers(ctx context.Context, rankingType string, now time.Time) ([]models.Ranking, error) {
	window := 24 * time.Hour
	if rankingType == models.RankingSpike7d || rankingType == models.RankingDrop7d {
		window = 7 * 24 * time.Hour
	}
	spike := rankingType == models.RankingSpike24h || rankingType == models.RankingSpike7d

	// Snapshots are stamped with the start of their hour, so both windows open
	// at hour boundaries.
	bucket := now.Truncate(time.Hour)
	current, err := s.latestInRange(ctx, bucket.Add(-s.currentWindow()), now)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, nil
	}
	margin := s.windowMargin()
	previous, err := s.latestInRange(ctx, bucket.Add(-window-margin), now.Add(-window+margin))
	if err != nil {
		return nil, err
	}

	moves := make([]movement, 0, len(current))
	for cardID, cur := range current {
		prev, ok := previous[cardID]
		if !ok {
			continue
		}
		delta := deltaPercent(cur.MinJPY, prev.MinJPY)
		if (spike && delta.IsPositive()) || (!spike && delta.IsNegative()) {
			moves = append(moves, movement{cardID: cardID, delta: delta})
		}
	}
	sort.Slice(moves, func(i, j int) bool {
		if !moves[i].delta.Equal(moves[j].delta) {
			if spike {
				return moves[i].delta.GreaterThan(moves[j].delta)
			}
			return moves[i].delta.LessThan(moves[j].delta)
		}
		return moves[i].cardID < moves[j].cardID
	})
	if topN := s.topN(); len(moves) > topN {
		moves = moves[:topN]
	}

	items := make([]models.Ranking, 0, len(moves))
	for i, m := range moves {
		item := models.Ranking{
			CardID:    m.cardID,
			Type:      rankingType,
			Rank:      i + 1,
			UpdatedAt: now,
		}
		d := decimal.NullDecimal{Decimal: m.delta.Round(2), Valid: true}
		if window == 24*time.Hour {
			item.DeltaPercent24h = d
		} else {
			item.DeltaPercent7d = d
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *RankingService) lowStock(ctx context.Context, now time.Time) ([]models.Ranking, error) {
	totals, err := s.Store.ListStockTotals(ctx, now.Add(-lowStockLookback))
	if err != nil {
		return nil, err
	}
	kept := make([]repository.CardStockTotal, 0, len(totals))
	for _, t := range totals {
		if t.StockQty > 0 {
			kept = append(kept, t)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].StockQty != kept[j].StockQty {
			return kept[i].StockQty < kept[j].StockQty
		}
		return kept[i].CardID < kept[j].CardID
	})
	if topN := s.topN(); len(kept) > topN {
		kept = kept[:topN]
	}
	items := make([]models.Ranking, 0, len(kept))
	for i, t := range kept {
		qty := t.StockQty
		items = append(items, models.Ranking{
			CardID:    t.CardID,
			Type:      models.RankingLowStock,
			StockQty:  &qty,
			Rank:      i + 1,
			UpdatedAt: now,
		})
	}
	return items, nil
}

// latestInRange keeps the newest snapshot per card within [from, to].
func (s *RankingService) latestInRange(ctx context.Context, from, to time.Time) (map[string]models.PriceSnapshot, error) {
	snaps, err := s.Store.ListPriceSnapshots(ctx, repository.ListPriceSnapshotsParams{From: from, To: to})
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.PriceSnapshot, len(snaps))
	for _, snap := range snaps {
		if prev, ok := out[snap.CardID]; ok && !snap.TS.After(prev.TS) {
			continue
		}
		out[snap.CardID] = snap
	}
	return out, nil
}

// deltaPercent is (current-previous)/previous*100, or zero without a previous price.
func deltaPercent(current, previous int64) decimal.Decimal {
	if previous <= 0 {
		return decimal.Zero
	}
	diff := decimal.NewFromInt(current - previous)
	return diff.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(previous))
}

func (s *RankingService) topN() int {
	if s.TopN > 0 {
		return s.TopN
	}
	return defaultRankingTopN
}

func (s *RankingService) currentWindow() time.Duration {
	if s.CurrentWindow > 0 {
		return s.CurrentWindow
	}
	return defaultCurrentWindow
}

func (s *RankingService) windowMargin() time.Duration {
	if s.WindowMargin > 0 {
		return s.WindowMargin
	}
	return defaultWindowMargin
}

func (s *RankingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
