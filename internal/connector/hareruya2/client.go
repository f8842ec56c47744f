// Package hareruya2 reads listings from the Hareruya2 Shopify storefront.
// The storefront's search.json endpoint is tried first; when it fails the
// HTML search or collection page is scraped instead.
package hareruya2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/fetcher"
)

const (
	Source   = "hareruya2"
	ShopName = "晴れる屋2"

	DefaultBaseURL = "https://www.hareruya2.com"

	// DefaultPriceScale converts search.json prices to yen.
	DefaultPriceScale = 100

	defaultPageSize     = 20
	totalEstimateFactor = 5
	maxFilterPrice      = 999999
)

var sortValues = map[connector.SortOption]string{
	connector.SortPriceAsc:   "price-ascending",
	connector.SortPriceDesc:  "price-descending",
	connector.SortNameAsc:    "title-ascending",
	connector.SortNameDesc:   "title-descending",
	connector.SortNewest:     "created-descending",
	connector.SortPopularity: "best-selling",
}

// collections maps set-code prefixes to collection pages, longest prefix first.
var collections = []struct {
	prefix string
	path   string
}{
	{"sv", "/collections/sv"},
	{"sm", "/collections/sm"},
	{"xy", "/collections/xy"},
	{"bw", "/collections/bw"},
	{"s", "/collections/swsh"},
}

var (
	itemSelectors  = []string{".grid-product", ".product-item", ".card-product", "[data-product-id]"}
	titleSelectors = []string{".grid-product__title", ".product-title", ".card-product__title", "h3 a", "h4 a", "[data-product-title]", ".product-name"}
	priceSelectors = []string{".grid-product__price", ".product-price", ".price", "[data-product-price]", ".money"}

	productPattern = regexp.MustCompile(`/products/([^?/]+)`)
	titleSet       = regexp.MustCompile(`\[([^\]]+)\]`)
	titleRarity    = regexp.MustCompile(`・\s*([A-Z]+)`)
	titleNumber    = regexp.MustCompile(`〈(\d+/\d+)〉`)
	titleTail      = regexp.MustCompile(`\s*\[.*?\]\s*・.*$`)
	titleTags      = regexp.MustCompile(`〈[^〉]*〉|\[[^\]]*\]`)
)

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title          string              `json:"title"`
	URL            string              `json:"url"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice decimal.NullDecimal `json:"compare_at_price"`
	Available      bool                `json:"available"`
	Image          string              `json:"image"`
}

type Options struct {
	BaseURL    string
	PriceScale decimal.Decimal
	Logger     *zap.Logger
}

type Client struct {
	fetcher    *fetcher.Fetcher
	baseURL    string
	priceScale decimal.Decimal
	logger     *zap.Logger
}

func New(f *fetcher.Fetcher, opts Options) *Client {
	c := &Client{
		fetcher:    f,
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		priceScale: opts.PriceScale,
		logger:     opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if !c.priceScale.IsPositive() {
		c.priceScale = decimal.NewFromInt(DefaultPriceScale)
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
	cards, err := c.searchJSON(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, connector.Wrap(Source, connector.CodeSearch, ctx.Err())
		}
		c.logger.Debug("hareruya2 search.json failed, scraping html", zap.Error(err))
		cards, err = c.searchHTML(ctx, params)
		if err != nil {
			return nil, connector.Wrap(Source, connector.CodeSearch, err)
		}
	}
	c.logger.Debug("hareruya2 search",
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
	path := id
	if !strings.HasPrefix(id, "/") {
		path = "/products/" + url.PathEscape(id)
	}
	resp, err := c.fetcher.Fetch(ctx, c.baseURL+path, nil)
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
	title := strings.TrimSpace(doc.Find(".product-single__title, h1").First().Text())
	price := connector.ParsePrice(doc.Find(".product-single__price, .price").First().Text())
	if title == "" || price <= 0 {
		return nil, nil
	}
	card := c.fromTitle(title)
	card.ID = id
	card.Price = price
	card.StockStatus = connector.StockInStock
	card.ShopURL = c.baseURL + path
	return &card, nil
}

func (c *Client) searchJSON(ctx context.Context, p connector.SearchParams) ([]connector.ShopCard, error) {
	q := url.Values{}
	if s := strings.TrimSpace(p.Query); s != "" {
		q.Set("q", s)
	}
	if p.MinPrice != nil || p.MaxPrice != nil {
		lo, hi := int64(0), int64(maxFilterPrice)
		if p.MinPrice != nil && *p.MinPrice > 0 {
			lo = *p.MinPrice
		}
		if p.MaxPrice != nil && *p.MaxPrice > 0 {
			hi = *p.MaxPrice
		}
		q.Set("filter.p.price", fmt.Sprintf("%d:%d", lo, hi))
	}
	q.Set("limit", strconv.Itoa(p.Limit))
	setPage(q, p.Page)

	resp, err := c.fetcher.Fetch(ctx, c.baseURL+"/search.json", &fetcher.Request{
		Query:   q,
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, err
	}
	var out searchResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &connector.ParseError{Source: Source, Field: "search.json", Err: err}
	}

	cards := make([]connector.ShopCard, 0, len(out.Results))
	for _, item := range out.Results {
		card := c.fromTitle(item.Title)
		if card.Name == "" {
			continue
		}
		card.ID = productID(item.URL)
		card.Price = item.Price.Mul(c.priceScale).Round(0).IntPart()
		if item.CompareAtPrice.Valid {
			card.SetOriginalPrice(item.CompareAtPrice.Decimal.Mul(c.priceScale).Round(0).IntPart())
		}
		card.StockStatus = connector.StockInStock
		if !item.Available {
			card.StockStatus = connector.StockOutOfStock
		}
		card.ImageURL = connector.AbsoluteURL(c.baseURL+"/", item.Image)
		card.ShopURL = connector.AbsoluteURL(c.baseURL+"/", item.URL)
		cards = append(cards, card)
	}
	return cards, nil
}

func (c *Client) searchHTML(ctx context.Context, p connector.SearchParams) ([]connector.ShopCard, error) {
	q := url.Values{}
	if s := strings.TrimSpace(p.Query); s != "" {
		q.Set("q", s)
	}
	if s, ok := sortValues[p.SortBy]; ok {
		q.Set("sort_by", s)
	}
	setPage(q, p.Page)
	path := collectionPath(p.SetCode)
	if path == "" {
		path = "/search"
	}
	// search.json already used this window's budget.
	resp, err := c.fetcher.FetchWait(ctx, c.baseURL+path, &fetcher.Request{Query: q})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &connector.ParseError{Source: Source, Field: "document", Err: err}
	}

	var cards []connector.ShopCard
	connector.SelectItems(doc, itemSelectors, nil).Each(func(i int, s *goquery.Selection) {
		card, err := c.parseItem(s)
		if err != nil {
			c.logger.Debug("hareruya2 skip item", zap.Int("index", i), zap.Error(err))
			return
		}
		cards = append(cards, card)
	})
	return cards, nil
}

func (c *Client) parseItem(s *goquery.Selection) (connector.ShopCard, error) {
	title := connector.FirstText(s, titleSelectors, true)
	card := c.fromTitle(title)
	if card.Name == "" {
		return card, connector.MissingName(Source)
	}
	for _, sel := range priceSelectors {
		if p := connector.ParsePrice(s.Find(sel).First().Text()); p > 0 {
			card.Price = p
			break
		}
	}
	if card.Price <= 0 {
		return card, connector.MissingPrice(Source)
	}
	link := strings.TrimSpace(s.Find("a").First().AttrOr("href", ""))
	card.ID = productID(link)
	card.ShopURL = c.baseURL
	if link != "" {
		card.ShopURL = connector.AbsoluteURL(c.baseURL+"/", link)
	}
	card.ImageURL = connector.AbsoluteURL(c.baseURL+"/", connector.FirstAttr(s, []string{"img"}, "data-src", "src"))
	card.StockStatus, card.Stock = stockStatus(s)
	return card, nil
}

// fromTitle parses "Name [SET] ・RARITY 〈013/078〉" style product titles.
func (c *Client) fromTitle(title string) connector.ShopCard {
	title = strings.TrimSpace(title)
	card := connector.ShopCard{
		Condition:   connector.ConditionNearMint,
		Language:    connector.LanguageJA,
		ShopName:    ShopName,
		LastUpdated: time.Now().UTC(),
	}
	if title == "" {
		return card
	}
	if m := titleSet.FindStringSubmatch(title); len(m) == 2 {
		card.SetCode = strings.ToLower(strings.TrimSpace(m[1]))
	}
	if m := titleRarity.FindStringSubmatch(title); len(m) == 2 {
		card.Rarity = m[1]
	}
	if m := titleNumber.FindStringSubmatch(title); len(m) == 2 {
		card.CardNumber = m[1]
	}
	name := titleTags.ReplaceAllString(titleTail.ReplaceAllString(title, ""), "")
	card.Name = connector.CleanName(name)
	return card
}

// setPage leaves page 1 implicit, as the storefront's own links do.
func setPage(q url.Values, page int) {
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
}

func stockStatus(s *goquery.Selection) (connector.StockStatus, *int) {
	if s.Find(".sold-out").Length() > 0 {
		zero := 0
		return connector.StockOutOfStock, &zero
	}
	return connector.ClassifyStock(s.Find(".stock, .inventory, [data-stock]").Text(), connector.DefaultLowStockThreshold)
}

func collectionPath(setCode string) string {
	code := strings.ToLower(strings.TrimSpace(setCode))
	if code == "" {
		return ""
	}
	for _, col := range collections {
		if strings.HasPrefix(code, col.prefix) {
			return col.path
		}
	}
	return ""
}

func productID(link string) string {
	if m := productPattern.FindStringSubmatch(link); len(m) == 2 {
		return m[1]
	}
	return ""
}
