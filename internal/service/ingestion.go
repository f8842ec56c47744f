package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

const (
	defaultStockChangeThreshold = 0.5
	defaultStaleness            = time.Hour
	defaultConditionCode        = "NM"
	// defaultStockQty is stored when a source does not expose stock counts.
	defaultStockQty = 1
)

// InsertionPolicy decides whether an observation is different enough from
// the latest stored row to be appended as a new row.
type InsertionPolicy struct {
	// StockChangeThreshold is the relative stock change above which a new row
	// is written, e.g. 0.5 for 50%.
	StockChangeThreshold float64
	// Staleness forces a new row once the stored row is older than this.
	Staleness        time.Duration
	DefaultCondition string
}

func DefaultInsertionPolicy() InsertionPolicy {
	return InsertionPolicy{
		StockChangeThreshold: defaultStockChangeThreshold,
		Staleness:            defaultStaleness,
		DefaultCondition:     defaultConditionCode,
	}
}

func (p InsertionPolicy) normalized() InsertionPolicy {
	if p.StockChangeThreshold <= 0 {
		p.StockChangeThreshold = defaultStockChangeThreshold
	}
	if p.Staleness <= 0 {
		p.Staleness = defaultStaleness
	}
	if strings.TrimSpace(p.DefaultCondition) == "" {
		p.DefaultCondition = defaultConditionCode
	}
	return p
}

// ShouldInsert reports whether an observation of price and stock at now
// warrants a new row given the latest stored row.
func (p InsertionPolicy) ShouldInsert(existing *models.CardPrice, price int64, stock *int, now time.Time) bool {
	if existing == nil {
		return true
	}
	p = p.normalized()
	if existing.PriceJPY != price {
		return true
	}
	if stock != nil && existing.StockQty != nil {
		// Sold out and back in stock are always new rows.
		if (*stock == 0) != (*existing.StockQty == 0) {
			return true
		}
	}
	if stock != nil && *stock > 0 && existing.StockQty != nil && *existing.StockQty > 0 {
		prev := float64(*existing.StockQty)
		if math.Abs(float64(*stock)-prev)/prev > p.StockChangeThreshold {
			return true
		}
	}
	return now.Sub(existing.UpdatedAt) > p.Staleness
}

// IngestionStore is the slice of the repository ingestion writes to.
type IngestionStore interface {
	repository.CatalogRepository
	repository.SnapshotRepository
}

type IngestionService struct {
	Store  IngestionStore
	Policy InsertionPolicy
	Logger *zap.Logger
	Now    func() time.Time
}

type IngestResult struct {
	SuccessCount int               `json:"success_count"`
	FailedCount  int               `json:"failed_count"`
	Errors       []*IngestionError `json:"-"`
}

// IngestBatch stores a batch of listings. Listings are grouped by shop so the
// shop row is written once per group; each listing is then stored in its own
// transaction and a failure is recorded against that listing only.
func (s *IngestionService) IngestBatch(ctx context.Context, cards []connector.ShopCard) (IngestResult, error) {
	var result IngestResult
	if s == nil || s.Store == nil {
		return result, ErrStoreUnavailable
	}
	now := s.now()

	for _, group := range groupByShop(cards) {
		shop, err := s.Store.UpsertShop(ctx, &models.Shop{
			Name: group.name,
			URL:  optionalString(connector.BaseURL(group.cards[0].ShopURL)),
		})
		if err == nil && shop == nil {
			err = errors.New("shop upsert returned no row")
		}
		if err != nil {
			s.warn("shop upsert failed", zap.String("shop", group.name), zap.Int("cards", len(group.cards)), zap.Error(err))
			for _, card := range group.cards {
				result.FailedCount++
				result.Errors = append(result.Errors, &IngestionError{Card: card.Name, Err: err})
			}
			continue
		}

		for _, card := range group.cards {
			if err := s.ingestOne(ctx, card, shop.ID, now); err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, &IngestionError{Card: card.Name, Err: err})
				s.warn("ingest card failed", zap.String("shop", group.name), zap.String("card", card.Name), zap.Error(err))
				continue
			}
			result.SuccessCount++
		}
	}
	return result, nil
}

func (s *IngestionService) ingestOne(ctx context.Context, card connector.ShopCard, shopID uint64, now time.Time) error {
	if card.Price <= 0 {
		return errors.New("price must be positive")
	}
	policy := s.Policy.normalized()
	cardID := connector.CardID(card)
	condition := card.Condition.StorageCode()
	if condition == "" {
		condition = policy.DefaultCondition
	}
	stock := observedStock(card)

	return s.Store.InTx(ctx, func(tx *gorm.DB) error {
		setID := strings.ToLower(strings.TrimSpace(card.SetCode))
		if setID != "" {
			if err := s.Store.UpsertCardSetTx(ctx, tx, cardSetFrom(card, setID)); err != nil {
				return err
			}
		}
		if err := s.Store.UpsertCardTx(ctx, tx, cardFrom(card, cardID, setID)); err != nil {
			return err
		}

		existing, err := s.Store.GetLatestCardPriceTx(ctx, tx, repository.CardPriceKey{
			CardID:    cardID,
			ShopID:    shopID,
			Condition: condition,
		})
		if err != nil {
			return err
		}
		if !policy.ShouldInsert(existing, card.Price, &stock, now) {
			return s.Store.TouchCardPriceTx(ctx, tx, existing.ID, now)
		}
		return s.Store.InsertCardPriceTx(ctx, tx, &models.CardPrice{
			CardID:      cardID,
			ShopID:      shopID,
			Condition:   condition,
			PriceJPY:    card.Price,
			ShippingJPY: 0,
			StockQty:    &stock,
			URL:         optionalString(card.ShopURL),
			CollectedAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
}

type shopGroup struct {
	name  string
	cards []connector.ShopCard
}

// groupByShop keeps groups in order of first appearance.
func groupByShop(cards []connector.ShopCard) []shopGroup {
	index := make(map[string]int)
	var groups []shopGroup
	for _, card := range cards {
		name := strings.TrimSpace(card.ShopName)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, shopGroup{name: name})
		}
		groups[i].cards = append(groups[i].cards, card)
	}
	return groups
}

// observedStock defaults unknown counts to one listed unit; out-of-stock
// listings are stored as zero.
func observedStock(card connector.ShopCard) int {
	if card.Stock != nil && *card.Stock >= 0 {
		return *card.Stock
	}
	if card.StockStatus == connector.StockOutOfStock {
		return 0
	}
	return defaultStockQty
}

func cardSetFrom(card connector.ShopCard, setID string) *models.CardSet {
	set := &models.CardSet{ID: setID, Code: strings.TrimSpace(card.SetCode)}
	name := optionalString(card.SetName)
	if card.Language == connector.LanguageEN {
		set.NameEn = name
	} else {
		set.NameJP = name
	}
	return set
}

func cardFrom(card connector.ShopCard, cardID, setID string) *models.Card {
	number := connector.NormalizeCardNumber(card.CardNumber)
	if number == "" {
		number = "000"
	}
	out := &models.Card{
		ID:       cardID,
		SetID:    optionalString(setID),
		Number:   number,
		NameJP:   strings.TrimSpace(card.Name),
		NameEn:   optionalString(card.NameEn),
		Rarity:   optionalString(card.Rarity),
		ImageURL: optionalString(card.ImageURL),
	}
	if out.ImageURL == nil {
		out.ImageURL = optionalString(card.ThumbnailURL)
	}
	return out
}

func (s *IngestionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *IngestionService) warn(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields...)
	}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
