package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// Queries mirror the gorm store closely enough for service tests.
type stubRepo struct {
	mu sync.Mutex

	sets      map[string]models.CardSet
	cards     map[string]models.Card
	shops     map[string]models.Shop
	prices    []models.CardPrice
	snapshots map[string]models.PriceSnapshot
	rankings  map[string][]models.Ranking
	runs      []models.CollectorRun
	settings  map[string]models.SystemSetting

	pingErr     error
	shopErr     map[string]error
	cardErr     map[string]error
	snapErr     map[string]error
	stockTotals []repository.CardStockTotal
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		sets:      map[string]models.CardSet{},
		cards:     map[string]models.Card{},
		shops:     map[string]models.Shop{},
		snapshots: map[string]models.PriceSnapshot{},
		rankings:  map[string][]models.Ranking{},
		settings:  map[string]models.SystemSetting{},
		shopErr:   map[string]error{},
		cardErr:   map[string]error{},
		snapErr:   map[string]error{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }
func (s *stubRepo) Ping(ctx context.Context) error                             { return s.pingErr }

func (s *stubRepo) UpsertCardSetTx(ctx context.Context, tx *gorm.DB, item *models.CardSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sets[item.ID]
	if !ok {
		s.sets[item.ID] = *item
		return nil
	}
	if existing.NameJP == nil {
		existing.NameJP = item.NameJP
	}
	if existing.NameEn == nil {
		existing.NameEn = item.NameEn
	}
	s.sets[item.ID] = existing
	return nil
}

func (s *stubRepo) UpsertCardTx(ctx context.Context, tx *gorm.DB, item *models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cardErr[item.ID]; err != nil {
		return err
	}
	existing, ok := s.cards[item.ID]
	if !ok {
		s.cards[item.ID] = *item
		return nil
	}
	if existing.NameEn == nil {
		existing.NameEn = item.NameEn
	}
	if existing.Rarity == nil {
		existing.Rarity = item.Rarity
	}
	if existing.ImageURL == nil {
		existing.ImageURL = item.ImageURL
	}
	s.cards[item.ID] = existing
	return nil
}

func (s *stubRepo) UpsertShop(ctx context.Context, item *models.Shop) (*models.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.shopErr[item.Name]; err != nil {
		return nil, err
	}
	existing, ok := s.shops[item.Name]
	if !ok {
		existing = models.Shop{ID: uint64(len(s.shops) + 1), Name: item.Name}
	}
	if item.URL != nil {
		existing.URL = item.URL
	}
	s.shops[item.Name] = existing
	out := existing
	return &out, nil
}

func (s *stubRepo) GetLatestCardPriceTx(ctx context.Context, tx *gorm.DB, key repository.CardPriceKey) (*models.CardPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.CardPrice
	for i := range s.prices {
		p := s.prices[i]
		if p.CardID != key.CardID || p.ShopID != key.ShopID || p.Condition != key.Condition {
			continue
		}
		if latest == nil || !p.CreatedAt.Before(latest.CreatedAt) {
			cp := p
			latest = &cp
		}
	}
	return latest, nil
}

func (s *stubRepo) InsertCardPriceTx(ctx context.Context, tx *gorm.DB, item *models.CardPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uint64(len(s.prices) + 1)
	s.prices = append(s.prices, *item)
	return nil
}

func (s *stubRepo) TouchCardPriceTx(ctx context.Context, tx *gorm.DB, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.prices {
		if s.prices[i].ID == id {
			s.prices[i].UpdatedAt = at
			s.prices[i].CollectedAt = at
			return nil
		}
	}
	return errors.New("price row not found")
}

func (s *stubRepo) ListCardPrices(ctx context.Context, params repository.ListCardPricesParams) ([]models.CardPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CardPrice
	for _, p := range s.prices {
		if params.CardID != "" && p.CardID != params.CardID {
			continue
		}
		if params.Since != nil && p.CollectedAt.Before(*params.Since) {
			continue
		}
		if params.InStockOnly && (p.StockQty == nil || *p.StockQty <= 0) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *stubRepo) ListCardIDsCollectedSince(ctx context.Context, since time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, p := range s.prices {
		if p.CollectedAt.Before(since) || seen[p.CardID] {
			continue
		}
		seen[p.CardID] = true
		ids = append(ids, p.CardID)
	}
	sort.Strings(ids)
	return ids, nil
}

func snapshotKey(cardID string, ts time.Time) string {
	return cardID + "|" + ts.UTC().Format(time.RFC3339)
}

func (s *stubRepo) UpsertPriceSnapshot(ctx context.Context, item *models.PriceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.snapErr[item.CardID]; err != nil {
		return err
	}
	s.snapshots[snapshotKey(item.CardID, item.TS)] = *item
	return nil
}

func (s *stubRepo) ListPriceSnapshots(ctx context.Context, params repository.ListPriceSnapshotsParams) ([]models.PriceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PriceSnapshot
	for _, snap := range s.snapshots {
		if !params.From.IsZero() && snap.TS.Before(params.From) {
			continue
		}
		if !params.To.IsZero() && snap.TS.After(params.To) {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CardID != out[j].CardID {
			return out[i].CardID < out[j].CardID
		}
		return out[i].TS.Before(out[j].TS)
	})
	return out, nil
}

func (s *stubRepo) GetLatestPriceSnapshot(ctx context.Context, cardID string) (*models.PriceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.PriceSnapshot
	for _, snap := range s.snapshots {
		if snap.CardID != cardID {
			continue
		}
		if latest == nil || snap.TS.After(latest.TS) {
			cp := snap
			latest = &cp
		}
	}
	return latest, nil
}

func (s *stubRepo) ReplaceRankings(ctx context.Context, rankingType string, items []models.Ranking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankings[rankingType] = append([]models.Ranking(nil), items...)
	return nil
}

func (s *stubRepo) ListRankings(ctx context.Context, params repository.ListRankingsParams) ([]repository.RankingRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.RankingRow
	for _, r := range s.rankings[params.Type] {
		if params.Limit > 0 && len(out) >= params.Limit {
			break
		}
		out = append(out, repository.RankingRow{Ranking: r, NameJP: s.cards[r.CardID].NameJP})
	}
	return out, nil
}

func (s *stubRepo) ListStockTotals(ctx context.Context, since time.Time) ([]repository.CardStockTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.CardStockTotal(nil), s.stockTotals...), nil
}

func (s *stubRepo) SearchCards(ctx context.Context, params repository.SearchCardsParams) ([]models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Card
	for _, c := range s.cards {
		if params.Query != nil && !strings.Contains(c.NameJP, *params.Query) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountCards(ctx context.Context, params repository.SearchCardsParams) (int64, error) {
	items, _ := s.SearchCards(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) GetCardByID(ctx context.Context, id string) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *stubRepo) GetCardSetByID(ctx context.Context, id string) (*models.CardSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[id]
	if !ok {
		return nil, nil
	}
	return &set, nil
}

func (s *stubRepo) ListCurrentCardPrices(ctx context.Context, cardID string) ([]repository.CardPriceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.CardPriceRow
	for _, p := range s.prices {
		if p.CardID == cardID && p.StockQty != nil && *p.StockQty > 0 {
			out = append(out, repository.CardPriceRow{CardPrice: p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalJPY() < out[j].TotalJPY() })
	return out, nil
}

func (s *stubRepo) ListPopularCards(ctx context.Context, limit int) ([]models.Card, error) {
	return s.SearchCards(ctx, repository.SearchCardsParams{Limit: limit})
}

func (s *stubRepo) SaveCollectorRun(ctx context.Context, item *models.CollectorRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *item)
	return nil
}

func (s *stubRepo) ListCollectorRuns(ctx context.Context, limit int) ([]models.CollectorRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CollectorRun(nil), s.runs...), nil
}

func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[item.Key] = *item
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.settings[key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *stubRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SystemSetting
	for _, item := range s.settings {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *stubRepo) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.settings)), nil
}

var _ repository.Repository = (*stubRepo)(nil)

// pricesFor returns stored rows for one card in insertion order.
func (s *stubRepo) pricesFor(cardID string) []models.CardPrice {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CardPrice
	for _, p := range s.prices {
		if p.CardID == cardID {
			out = append(out, p)
		}
	}
	return out
}
