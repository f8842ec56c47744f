package hareruya2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/fetcher"
)

const searchJSONFixture = `{"results":[
  {"title":"リザードンex [SV4a] ・SAR 〈349/190〉","url":"/products/sv4a-349-sar","price":128.0,"compare_at_price":150,"available":true,"image":"//cdn.shopify.com/charizard.jpg"},
  {"title":"ピカチュウ [SV2a] ・C 〈025/165〉","url":"/products/sv2a-025","price":"0.5","compare_at_price":null,"available":false,"image":""}
]}`

const collectionFixture = `<html><body>
<div class="grid-product">
  <a href="/products/mew-ex?variant=1"><img src="//cdn.shopify.com/mew.jpg"></a>
  <div class="grid-product__title">ミュウex [SV2a] ・SR 〈193/165〉</div>
  <div class="grid-product__price">¥4,980</div>
</div>
<div class="grid-product">
  <div class="grid-product__title">ルギアV [S12] ・RR</div>
  <div class="grid-product__price">¥300</div>
  <span class="sold-out">Sold out</span>
</div>
<div class="grid-product">
  <div class="grid-product__title">価格なし</div>
</div>
</body></html>`

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestClient(t *testing.T, h http.HandlerFunc, clock *fakeClock, limits fetcher.Limits) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := fetcher.New(fetcher.Options{
		Source: Source,
		Limits: limits,
		Now:    clock.Now,
		Sleep:  clock.Sleep,
	})
	return New(f, Options{BaseURL: srv.URL})
}

func TestSearchCards_SearchJSON(t *testing.T) {
	var gotPath, gotFilter, gotLimit string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFilter = r.URL.Query().Get("filter.p.price")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(searchJSONFixture))
	}, &fakeClock{now: time.Now()}, fetcher.Limits{})

	maxPrice := int64(20000)
	res, err := c.SearchCards(context.Background(), connector.SearchParams{Query: "リザードン", MaxPrice: &maxPrice, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, "/search.json", gotPath)
	require.Equal(t, "0:20000", gotFilter)
	require.Equal(t, "2", gotLimit)
	require.Len(t, res.Cards, 2)
	require.True(t, res.HasMore)
	require.Equal(t, 10, res.TotalCount)

	first := res.Cards[0]
	require.Equal(t, "sv4a-349-sar", first.ID)
	require.Equal(t, "リザードンex", first.Name)
	require.Equal(t, "sv4a", first.SetCode)
	require.Equal(t, "SAR", first.Rarity)
	require.Equal(t, "349/190", first.CardNumber)
	require.Equal(t, int64(12800), first.Price)
	require.NotNil(t, first.OriginalPrice)
	require.Equal(t, int64(15000), *first.OriginalPrice)
	require.NotNil(t, first.DiscountRate)
	require.Equal(t, "https://cdn.shopify.com/charizard.jpg", first.ImageURL)
	require.Equal(t, "sv4a-349", connector.CardID(first))

	second := res.Cards[1]
	require.Equal(t, int64(50), second.Price)
	require.Nil(t, second.OriginalPrice)
	require.Equal(t, connector.StockOutOfStock, second.StockStatus)
	require.Equal(t, "sv2a-025", connector.CardID(second))
}

func TestSearchCards_FallsBackToCollectionHTML(t *testing.T) {
	var htmlPath, sortBy string
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search.json" {
			http.NotFound(w, r)
			return
		}
		htmlPath = r.URL.Path
		sortBy = r.URL.Query().Get("sort_by")
		_, _ = w.Write([]byte(collectionFixture))
	}, clock, fetcher.Limits{MaxRequests: 1, Per: 2 * time.Second})

	res, err := c.SearchCards(context.Background(), connector.SearchParams{
		Query:   "ミュウ",
		SetCode: "sv2a",
		SortBy:  connector.SortPriceAsc,
	})
	require.NoError(t, err)
	require.Equal(t, "/collections/sv", htmlPath)
	require.Equal(t, "price-ascending", sortBy)
	require.Equal(t, []time.Duration{2 * time.Second}, clock.sleeps)
	require.Len(t, res.Cards, 2)
	require.False(t, res.HasMore)

	mew := res.Cards[0]
	require.Equal(t, "mew-ex", mew.ID)
	require.Equal(t, "ミュウex", mew.Name)
	require.Equal(t, int64(4980), mew.Price)
	require.Equal(t, connector.StockInStock, mew.StockStatus)
	require.Equal(t, "https://cdn.shopify.com/mew.jpg", mew.ImageURL)

	lugia := res.Cards[1]
	require.Empty(t, lugia.ID)
	require.Equal(t, "s12-ルギアv", connector.CardID(lugia))
	require.Equal(t, "s12", lugia.SetCode)
	require.Equal(t, "RR", lugia.Rarity)
	require.Equal(t, connector.StockOutOfStock, lugia.StockStatus)
}

func TestSearchCards_SendsPageNumber(t *testing.T) {
	var jsonPage, htmlPage string
	var jsonHasPage bool
	fail := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search.json" {
			_, jsonHasPage = r.URL.Query()["page"]
			jsonPage = r.URL.Query().Get("page")
			if fail {
				http.Error(w, "boom", http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(searchJSONFixture))
			return
		}
		htmlPage = r.URL.Query().Get("page")
		_, _ = w.Write([]byte(collectionFixture))
	}, &fakeClock{now: time.Now()}, fetcher.Limits{})

	_, err := c.SearchCards(context.Background(), connector.SearchParams{Query: "リザードン", Page: 1})
	require.NoError(t, err)
	require.False(t, jsonHasPage)

	_, err = c.SearchCards(context.Background(), connector.SearchParams{Query: "リザードン", Page: 2})
	require.NoError(t, err)
	require.Equal(t, "2", jsonPage)

	fail = true
	_, err = c.SearchCards(context.Background(), connector.SearchParams{Query: "リザードン", Page: 3})
	require.NoError(t, err)
	require.Equal(t, "3", jsonPage)
	require.Equal(t, "3", htmlPage)
}

func TestStockStatus(t *testing.T) {
	cases := []struct {
		name   string
		markup string
		want   connector.StockStatus
		qty    *int
	}{
		{"no stock text", `<div></div>`, connector.StockInStock, nil},
		{"sold out badge", `<div><span class="sold-out">Sold out</span></div>`, connector.StockOutOfStock, intPtr(0)},
		{"sold out text", `<div><span class="stock">SOLD OUT</span></div>`, connector.StockOutOfStock, intPtr(0)},
		{"word containing out", `<div><span class="stock">In stock, ships without delay</span></div>`, connector.StockInStock, nil},
		{"count", `<div><span class="inventory">在庫数：2</span></div>`, connector.StockLowStock, intPtr(2)},
		{"japanese sold out", `<div><span data-stock="0">売り切れ</span></div>`, connector.StockOutOfStock, intPtr(0)},
	}
	for _, tc := range cases {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(tc.markup))
		require.NoError(t, err)
		status, qty := stockStatus(doc.Find("div").First())
		require.Equal(t, tc.want, status, tc.name)
		require.Equal(t, tc.qty, qty, tc.name)
	}
}

func intPtr(v int) *int { return &v }

func TestCollectionPath(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"", ""},
		{"sv4a", "/collections/sv"},
		{"SM12a", "/collections/sm"},
		{"s8b", "/collections/swsh"},
		{"xy11", "/collections/xy"},
		{"bw7", "/collections/bw"},
		{"pmcg1", ""},
	}
	for _, tc := range cases {
		if got := collectionPath(tc.code); got != tc.want {
			t.Fatalf("collectionPath(%q)=%q want %q", tc.code, got, tc.want)
		}
	}
}

func TestGetCardDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/mew-ex" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><body><h1 class="product-single__title">ミュウex [SV2a] ・SR 〈193/165〉</h1><span class="product-single__price">¥4,800</span></body></html>`))
	}, &fakeClock{now: time.Now()}, fetcher.Limits{})

	card, err := c.GetCardDetail(context.Background(), "mew-ex")
	require.NoError(t, err)
	require.NotNil(t, card)
	require.Equal(t, int64(4800), card.Price)
	require.Equal(t, "sv2a-193", connector.CardID(*card))

	missing, err := c.GetCardDetail(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}
