// Package cardrush scrapes listings from the Card Rush storefront.
package cardrush

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
	Source   = "cardrush"
	ShopName = "カードラッシュ"

	DefaultBaseURL = "https://www.cardrush-pokemon.jp"

	defaultPageSize = 20
	// The storefront does not report a hit count.
	totalEstimateFactor = 10
)

var sortValues = map[connector.SortOption]string{
	connector.SortPriceAsc:   "price_asc",
	connector.SortPriceDesc:  "price_desc",
	connector.SortNameAsc:    "name_asc",
	connector.SortNameDesc:   "name_desc",
	connector.SortNewest:     "new",
	connector.SortPopularity: "popular",
}

var (
	itemSelectors  = []string{".ajax_itemlist_box .item", ".product-item", ".itembox"}
	nameSelectors  = []string{".item-title", ".product-name", ".itemname", "h3", "h4", ".title", "a[title]"}
	priceSelectors = []string{".price", ".price_data", ".item-price", ".cost", `[class*="price"]`}
	stockSelector  = `[class*="stock"], [class*="zaiko"]`

	// Older category listings use the plain list-cell markup.
	legacyItemSelectors = []string{".list_item_cell", "ul.item_list > li", `li[class*="item"]`}

	itemIDPattern = regexp.MustCompile(`itemid=([^&]+)`)
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
	resp, err := c.fetcher.FetchWait(ctx, c.baseURL+"/xml.php", &fetcher.Request{Query: searchQuery(params)})
	if err != nil {
		return nil, connector.Wrap(Source, connector.CodeSearch, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, connector.Wrap(Source, connector.CodeDecode, err)
	}

	cards := make([]connector.ShopCard, 0, params.Limit)
	connector.SelectItems(doc, itemSelectors, legacyItemSelectors).Each(func(i int, s *goquery.Selection) {
		card, err := c.parseItem(s)
		if err != nil {
			c.logger.Debug("cardrush skip item", zap.Int("index", i), zap.Error(err))
			return
		}
		cards = append(cards, card)
	})
	c.logger.Debug("cardrush search",
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
	resp, err := c.fetcher.Fetch(ctx, c.baseURL+"/detail.php", &fetcher.Request{Query: url.Values{"itemid": []string{id}}})
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

	name := strings.TrimSpace(doc.Find("h1, .item-title, .product-name").First().Text())
	if name == "" {
		return nil, nil
	}
	price := firstPrice(doc.Selection)
	if price <= 0 {
		return nil, nil
	}
	status, stock := connector.ClassifyStock(doc.Find(stockSelector).Text(), connector.DefaultLowStockThreshold)
	setCode, setName := connector.InferSet(name, connector.DefaultSetPatterns)
	return &connector.ShopCard{
		ID:          id,
		Name:        connector.CleanName(name),
		SetCode:     setCode,
		SetName:     setName,
		CardNumber:  connector.InferCardNumber(name),
		Rarity:      connector.InferRarity(name),
		Condition:   connector.ConditionNearMint,
		Language:    connector.LanguageJA,
		Price:       price,
		Stock:       stock,
		StockStatus: status,
		ShopName:    ShopName,
		ShopURL:     c.baseURL + "/detail.php?itemid=" + url.QueryEscape(id),
		LastUpdated: time.Now().UTC(),
	}, nil
}

func searchQuery(p connector.SearchParams) url.Values {
	v := url.Values{}
	v.Set("go", "search")
	if q := strings.TrimSpace(p.Query); q != "" {
		v.Set("q", q)
	}
	if p.MinPrice != nil && *p.MinPrice > 0 {
		v.Set("min_price", strconv.FormatInt(*p.MinPrice, 10))
	}
	if p.MaxPrice != nil && *p.MaxPrice > 0 {
		v.Set("max_price", strconv.FormatInt(*p.MaxPrice, 10))
	}
	if p.Page > 1 {
		v.Set("p", strconv.Itoa(p.Page))
	}
	if s, ok := sortValues[p.SortBy]; ok {
		v.Set("sort", s)
	}
	return v
}

func (c *Client) parseItem(s *goquery.Selection) (connector.ShopCard, error) {
	rawName := connector.FirstText(s, nameSelectors, true)
	name := connector.CleanName(rawName)
	if name == "" {
		return connector.ShopCard{}, connector.MissingName(Source)
	}
	price := firstPrice(s)
	if price <= 0 {
		return connector.ShopCard{}, connector.MissingPrice(Source)
	}

	link := strings.TrimSpace(s.Find("a").First().AttrOr("href", ""))
	var id string
	if m := itemIDPattern.FindStringSubmatch(link); len(m) == 2 {
		id = m[1]
	}
	shopURL := c.baseURL
	if link != "" {
		shopURL = connector.AbsoluteURL(c.baseURL+"/", link)
	}

	status, stock := connector.ClassifyStock(s.Find(stockSelector).Text(), connector.DefaultLowStockThreshold)
	setCode, setName := connector.InferSet(rawName, connector.DefaultSetPatterns)
	image := connector.FirstAttr(s, []string{"img"}, "src", "data-src")

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
		ShopURL:     shopURL,
		LastUpdated: time.Now().UTC(),
	}, nil
}

func firstPrice(s *goquery.Selection) int64 {
	for _, sel := range priceSelectors {
		if p := connector.ParsePrice(strings.TrimSpace(s.Find(sel).First().Text())); p > 0 {
			return p
		}
	}
	return 0
}
