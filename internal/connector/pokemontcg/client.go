// Package pokemontcg reads card prices from the public Pokémon TCG API.
// Prices there are USD (TCGplayer) or EUR (Cardmarket) and are converted to
// yen with fixed rates.
package pokemontcg

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/fetcher"
)

const (
	Source   = "pokemontcg"
	ShopName = "Pokemon TCG API"
	ShopURL  = "https://pokemontcg.io"

	DefaultBaseURL = "https://api.pokemontcg.io/v2"

	// DefaultUSDToJPY and DefaultEURToJPY are fixed approximations, not live rates.
	DefaultUSDToJPY = 150
	DefaultEURToJPY = 180

	defaultPageSize = 20
	// maxPriceUSD bounds open-ended price filters.
	maxPriceUSD = 10000
)

var sortFields = map[connector.SortOption]string{
	connector.SortPriceAsc:   "tcgplayer.prices.normal.market",
	connector.SortPriceDesc:  "-tcgplayer.prices.normal.market",
	connector.SortNameAsc:    "name",
	connector.SortNameDesc:   "-name",
	connector.SortNewest:     "-set.releaseDate",
	connector.SortPopularity: "-hp",
}

type Options struct {
	BaseURL  string
	APIKey   string
	USDToJPY decimal.Decimal
	EURToJPY decimal.Decimal
	Logger   *zap.Logger
}

type Client struct {
	fetcher  *fetcher.Fetcher
	baseURL  string
	apiKey   string
	usdToJPY decimal.Decimal
	eurToJPY decimal.Decimal
	logger   *zap.Logger
}

func New(f *fetcher.Fetcher, opts Options) *Client {
	c := &Client{
		fetcher:  f,
		baseURL:  strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:   strings.TrimSpace(opts.APIKey),
		usdToJPY: opts.USDToJPY,
		eurToJPY: opts.EURToJPY,
		logger:   opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if !c.usdToJPY.IsPositive() {
		c.usdToJPY = decimal.NewFromInt(DefaultUSDToJPY)
	}
	if !c.eurToJPY.IsPositive() {
		c.eurToJPY = decimal.NewFromInt(DefaultEURToJPY)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

func (c *Client) Source() string   { return Source }
func (c *Client) ShopName() string { return ShopName }

func (c *Client) SearchCards(ctx context.Context, params connector.SearchParams) (*connector.SearchResult, error) {
	params = params.Normalize(defaultPageSize)
	var resp searchResponse
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/cards", c.request(c.searchQuery(params)), &resp); err != nil {
		return nil, connector.Wrap(Source, connector.CodeSearch, err)
	}
	cards := make([]connector.ShopCard, 0, len(resp.Data))
	for _, item := range resp.Data {
		cards = append(cards, c.toShopCard(item))
	}
	page, size := resp.Page, resp.PageSize
	if page <= 0 {
		page = params.Page
	}
	if size <= 0 {
		size = params.Limit
	}
	c.logger.Debug("pokemontcg search",
		zap.String("query", params.Query),
		zap.Int("page", page),
		zap.Int("cards", len(cards)),
		zap.Int("total", resp.TotalCount),
	)
	return &connector.SearchResult{
		Cards:      cards,
		TotalCount: resp.TotalCount,
		Page:       page,
		Limit:      size,
		HasMore:    page*size < resp.TotalCount,
	}, nil
}

func (c *Client) GetCardDetail(ctx context.Context, id string) (*connector.ShopCard, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var resp detailResponse
	err := c.fetcher.GetJSON(ctx, c.baseURL+"/cards/"+url.PathEscape(id), c.request(nil), &resp)
	if fetcher.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, connector.Wrap(Source, connector.CodeDetail, err)
	}
	if resp.Data == nil {
		return nil, nil
	}
	card := c.toShopCard(*resp.Data)
	return &card, nil
}

func (c *Client) request(q url.Values) *fetcher.Request {
	req := &fetcher.Request{Query: q}
	if c.apiKey != "" {
		req.Headers = map[string]string{"X-Api-Key": c.apiKey}
	}
	return req
}

func (c *Client) searchQuery(p connector.SearchParams) url.Values {
	parts := make([]string, 0, 3)
	if q := strings.TrimSpace(p.Query); q != "" {
		parts = append(parts, `name:"*`+q+`*"`)
	}
	if p.SetCode != "" {
		parts = append(parts, "set.id:"+p.SetCode)
	}
	if p.MinPrice != nil || p.MaxPrice != nil {
		lo := decimal.Zero
		hi := decimal.NewFromInt(maxPriceUSD)
		if p.MinPrice != nil && *p.MinPrice > 0 {
			lo = decimal.NewFromInt(*p.MinPrice).DivRound(c.usdToJPY, 2)
		}
		if p.MaxPrice != nil && *p.MaxPrice > 0 {
			hi = decimal.NewFromInt(*p.MaxPrice).DivRound(c.usdToJPY, 2)
		}
		parts = append(parts, "tcgplayer.prices.normal.market:["+lo.String()+" TO "+hi.String()+"]")
	}

	v := url.Values{}
	if len(parts) > 0 {
		v.Set("q", strings.Join(parts, " "))
	}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("pageSize", strconv.Itoa(p.Limit))
	if field, ok := sortFields[p.SortBy]; ok {
		v.Set("orderBy", field)
	}
	return v
}

func (c *Client) toShopCard(item apiCard) connector.ShopCard {
	card := connector.ShopCard{
		ID:           item.ID,
		Name:         item.Name,
		NameEn:       item.Name,
		SetName:      item.Set.Name,
		SetCode:      item.Set.ID,
		CardNumber:   item.Number,
		Rarity:       item.Rarity,
		Condition:    connector.ConditionNearMint,
		Language:     connector.LanguageEN,
		StockStatus:  connector.StockInStock,
		ImageURL:     item.Images.Large,
		ThumbnailURL: item.Images.Small,
		ShopName:     ShopName,
		ShopURL:      ShopURL + "/cards/" + item.ID,
		LastUpdated:  time.Now().UTC(),
	}

	var high int64
	if tier := pickTier(item); tier != nil {
		switch {
		case tier.Market != nil && *tier.Market > 0:
			card.Price = convert(*tier.Market, c.usdToJPY)
		case tier.Mid != nil && *tier.Mid > 0:
			card.Price = convert(*tier.Mid, c.usdToJPY)
		case tier.Low != nil && *tier.Low > 0:
			card.Price = convert(*tier.Low, c.usdToJPY)
		}
		if tier.High != nil && *tier.High > 0 {
			high = convert(*tier.High, c.usdToJPY)
		}
	}
	if card.Price == 0 && item.CardMarket != nil && item.CardMarket.Prices != nil &&
		item.CardMarket.Prices.TrendPrice != nil && *item.CardMarket.Prices.TrendPrice > 0 {
		card.Price = convert(*item.CardMarket.Prices.TrendPrice, c.eurToJPY)
	}
	card.SetOriginalPrice(high)

	updated := ""
	if item.TCGPlayer != nil {
		if item.TCGPlayer.URL != "" {
			card.ShopURL = item.TCGPlayer.URL
		}
		updated = item.TCGPlayer.UpdatedAt
	}
	if updated == "" && item.CardMarket != nil {
		updated = item.CardMarket.UpdatedAt
	}
	if ts, ok := parseUpdatedAt(updated); ok {
		card.LastUpdated = ts
	}
	return card
}

// pickTier prefers holofoil, then reverse holo, normal and first editions.
func pickTier(item apiCard) *priceTier {
	if item.TCGPlayer == nil || item.TCGPlayer.Prices == nil {
		return nil
	}
	p := item.TCGPlayer.Prices
	for _, tier := range []*priceTier{p.Holofoil, p.ReverseHolofoil, p.Normal, p.FirstEditionHolo, p.FirstEditionNormal} {
		if tier != nil {
			return tier
		}
	}
	return nil
}

func convert(amount float64, rate decimal.Decimal) int64 {
	return decimal.NewFromFloat(amount).Mul(rate).Round(0).IntPart()
}

// parseUpdatedAt accepts the API's "2006/01/02" dates as well as RFC 3339.
func parseUpdatedAt(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006/01/02", "2006-01-02", time.RFC3339} {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
