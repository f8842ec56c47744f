// Package cardlabo scrapes the Pokémon listing pages of the Card Labo online
// store. The markup varies between templates, so listings are located with
// a primary selector set and, when that yields nothing usable, a broader
// secondary set.
package cardlabo

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/fetcher"
)

const (
	Source   = "cardlabo"
	ShopName = "カードラボ"

	DefaultBaseURL = "https://www.c-labo-online.jp"
	pokemonPage    = "/page/125"

	// defaultPageSize matches the storefront's own listing size.
	defaultPageSize     = 60
	totalEstimateFactor = 8
)

var sortValues = map[connector.SortOption]string{
	connector.SortPriceAsc:   "price_asc",
	connector.SortPriceDesc:  "price_desc",
	connector.SortNameAsc:    "name_asc",
	connector.SortNameDesc:   "name_desc",
	connector.SortNewest:     "date_desc",
	connector.SortPopularity: "popular",
}

var (
	primaryItems   = []string{".ajax_itemlist_box .list_item_table", ".item-box", ".product-item", "[data-item-id]"}
	secondaryItems = []string{".item", ".product", ".goods"}

	nameSelectors   = []string{".item-name", ".product-name", ".itemname", ".goods-name", ".title", "h3", "h4", "a[title]", ".list_item_name"}
	priceSelectors  = []string{".price", ".price_data", ".item-price", ".cost", ".money", `[class*="price"]`, ".list_item_price"}
	stockSelectors  = []string{".stock", ".zaiko", ".inventory", `[class*="stock"]`, ".list_item_stock"}
	soldOutSelector = ".sold-out, .soldout, [disabled]"

	itemPathPattern = regexp.MustCompile(`/item/([^/?]+)`)
)

type Options struct {
	BaseURL string
	Logger  *zap.Logger
}

type Client struct {
	fetcher *fetcher.Fetcher
	baseURL string
	logger  *zap.Logger
}

func New(f *fetcher.Fetcher, opts Options) *Client {
	c := &Client{
		fetcher: f,
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		logger:  opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
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
	resp, err := c.fetcher.FetchWait(ctx, c.baseURL+pokemonPage, &fetcher.Request{Query: searchQuery(params)})
	if err != nil {
		return nil, connector.Wrap(Source, connector.CodeSearch, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, connector.Wrap(Source, connector.CodeDecode, err)
	}

	cards := c.parseList(connector.SelectItems(doc, primaryItems, nil))
	if len(cards) == 0 {
		cards = c.parseList(connector.SelectItems(doc, secondaryItems, nil))
	}
	c.logger.Debug("cardlabo search",
		zap.String("query", params.Query),
		zap.Int("page", params.Page),
		zap.Int("cards", len(cards)),
	)
	return &connector.SearchResult{
		Cards:          cards,
		TotalCount:     len(cards) * totalEstimateFactor,
		TotalEstimated: true,
		Page:           params.Page,
		Limit:          params.Limit,
		HasMore:        len(cards) >= params.Limit,
	}, nil
}

func (c *Client) GetCardDetail(ctx context.Context, id string) (*connector.ShopCard, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	resp, err := c.fetcher.Fetch(ctx, c.baseURL+"/item/"+url.PathEscape(id), nil)
	if fetcher.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, connector.Wrap(Source, connector.CodeDetail, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, connector.Wrap(Source, connector.CodeDecode, err)
	}

	raw := strings.TrimSpace(doc.Find("h1, .item-title, .product-name, .goods-name").First().Text())
	card, err := c.build(doc.Selection, raw, id)
	if err != nil {
		return nil, nil
	}
	card.ShopURL = c.baseURL + "/item/" + url.PathEscape(id)
	return &card, nil
}

func searchQuery(p connector.SearchParams) url.Values {
	v := url.Values{}
	if q := strings.TrimSpace(p.Query); q != "" {
		v.Set("keyword", q)
		v.Set("Submit", "")
	}
	if p.Page > 1 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	v.Set("num", strconv.Itoa(p.Limit))
	if s, ok := sortValues[p.SortBy]; ok {
		v.Set("sort", s)
	}
	if p.MinPrice != nil && *p.MinPrice > 0 {
		v.Set("min_price", strconv.FormatInt(*p.MinPrice, 10))
	}
	if p.MaxPrice != nil && *p.MaxPrice > 0 {
		v.Set("max_price", strconv.FormatInt(*p.MaxPrice, 10))
	}
	return v
}

func (c *Client) parseList(items *goquery.Selection) []connector.ShopCard {
	cards := make([]connector.ShopCard, 0, items.Length())
	items.Each(func(i int, s *goquery.Selection) {
		raw := connector.FirstText(s, nameSelectors, true)
		id := itemID(s)
		card, err := c.build(s, raw, id)
		if err != nil {
			c.logger.Debug("cardlabo skip item", zap.Int("index", i), zap.Error(err))
			return
		}
		if link := strings.TrimSpace(s.Find("a").First().AttrOr("href", "")); link != "" {
			card.ShopURL = connector.AbsoluteURL(c.baseURL+"/", link)
		} else if id != "" {
			card.ShopURL = c.baseURL + "/item/" + url.PathEscape(id)
		} else {
			card.ShopURL = c.baseURL
		}
		cards = append(cards, card)
	})
	return cards
}

func (c *Client) build(s *goquery.Selection, rawName, id string) (connector.ShopCard, error) {
	name := connector.CleanName(rawName)
	if name == "" {
		return connector.ShopCard{}, connector.MissingName(Source)
	}
	price := firstPrice(s)
	if price <= 0 {
		return connector.ShopCard{}, connector.MissingPrice(Source)
	}
	status, stock := stockInfo(s)
	setCode, setName := connector.InferSet(rawName, connector.DefaultSetPatterns)
	image := connector.FirstAttr(s, []string{"img"}, "data-src", "src")
	return connector.ShopCard{
		ID:          id,
		Name:        name,
		SetCode:     setCode,
		SetName:     setName,
		CardNumber:  connector.InferCardNumber(rawName),
		Rarity:      connector.InferRarity(rawName),
		Condition:   connector.ConditionNearMint,
		Language:    connector.LanguageJA,
		Price:       price,
		Stock:       stock,
		StockStatus: status,
		ImageURL:    connector.AbsoluteURL(c.baseURL+"/", image),
		ShopName:    ShopName,
		LastUpdated: time.Now().UTC(),
	}, nil
}

// itemID prefers data attributes, then the /item/{id} link, then a hidden
// cart form field.
func itemID(s *goquery.Selection) string {
	if id := connector.OwnAttr(s, "data-item-id", "data-product-id"); id != "" {
		return id
	}
	if m := itemPathPattern.FindStringSubmatch(s.Find("a").First().AttrOr("href", "")); len(m) == 2 {
		return m[1]
	}
	return connector.FirstAttr(s, []string{`input[name="goods_id"]`, `input[name="item_id"]`}, "value")
}

func stockInfo(s *goquery.Selection) (connector.StockStatus, *int) {
	for _, sel := range stockSelectors {
		if el := s.Find(sel); el.Length() > 0 {
			return connector.ClassifyStock(el.Text(), connector.DefaultLowStockThreshold)
		}
	}
	if s.Find(soldOutSelector).Length() > 0 {
		zero := 0
		return connector.StockOutOfStock, &zero
	}
	return connector.StockInStock, nil
}

func firstPrice(s *goquery.Selection) int64 {
	for _, sel := range priceSelectors {
		if p := connector.ParsePrice(strings.TrimSpace(s.Find(sel).First().Text())); p > 0 {
			return p
		}
	}
	return 0
}
