package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

var ErrCardNotFound = errors.New("card not found")

type CardQueryStore interface {
	repository.QueryRepository
	GetLatestPriceSnapshot(ctx context.Context, cardID string) (*models.PriceSnapshot, error)
}

type CardQueryService struct {
	Repo       CardQueryStore
	Connectors ConnectorSource
}

type CardsResult struct {
	Items []models.Card
	Total int64
}

// CardDetail is a card with its in-stock listings, cheapest total first.
type CardDetail struct {
	Card           models.Card               `json:"card"`
	Set            *models.CardSet           `json:"set,omitempty"`
	Prices         []repository.CardPriceRow `json:"prices"`
	LatestSnapshot *models.PriceSnapshot     `json:"latest_snapshot,omitempty"`
}

func (s *CardQueryService) SearchCards(ctx context.Context, params repository.SearchCardsParams) (CardsResult, error) {
	if s == nil || s.Repo == nil {
		return CardsResult{}, ErrStoreUnavailable
	}
	total, err := s.Repo.CountCards(ctx, params)
	if err != nil {
		return CardsResult{}, err
	}
	items, err := s.Repo.SearchCards(ctx, params)
	if err != nil {
		return CardsResult{}, err
	}
	return CardsResult{Items: items, Total: total}, nil
}

func (s *CardQueryService) GetCard(ctx context.Context, id string) (*CardDetail, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrStoreUnavailable
	}
	id = strings.ToLower(strings.TrimSpace(id))
	card, err := s.Repo.GetCardByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	out := &CardDetail{Card: *card}
	if card.SetID != nil {
		if out.Set, err = s.Repo.GetCardSetByID(ctx, *card.SetID); err != nil {
			return nil, err
		}
	}
	if out.Prices, err = s.Repo.ListCurrentCardPrices(ctx, card.ID); err != nil {
		return nil, err
	}
	if out.LatestSnapshot, err = s.Repo.GetLatestPriceSnapshot(ctx, card.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CardQueryService) PopularCards(ctx context.Context, limit int) ([]models.Card, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrStoreUnavailable
	}
	return s.Repo.ListPopularCards(ctx, limit)
}

// SearchShop runs a live search against one source. Nothing is stored.
func (s *CardQueryService) SearchShop(ctx context.Context, source string, params connector.SearchParams) (*connector.SearchResult, error) {
	if s == nil || s.Connectors == nil {
		return nil, &connector.Error{Source: source, Code: connector.CodeUnknown, Err: errors.New("no connectors configured")}
	}
	conn, err := s.Connectors.Get(strings.TrimSpace(source))
	if err != nil {
		return nil, err
	}
	return conn.SearchCards(ctx, params)
}
