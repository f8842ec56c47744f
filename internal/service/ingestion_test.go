package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nakatash/pokeca-search/internal/connector"
	"github.com/nakatash/pokeca-search/internal/models"
)

func intPtr(v int) *int { return &v }

func listing(shop, set, number, name string, price int64, stock int) connector.ShopCard {
	return connector.ShopCard{
		ID:          set + "-" + number,
		Name:        name,
		SetCode:     set,
		CardNumber:  number,
		Condition:   connector.ConditionNearMint,
		Language:    connector.LanguageJA,
		Price:       price,
		Stock:       intPtr(stock),
		StockStatus: connector.StockInStock,
		ShopName:    shop,
		ShopURL:     "https://" + shop + ".example/item/" + number,
	}
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time           { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newIngestion(repo *stubRepo, c *clock) *IngestionService {
	return &IngestionService{Store: repo, Policy: DefaultInsertionPolicy(), Now: c.Now}
}

func TestIngestBatch_RepeatedBatchIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	c := &clock{t: time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)}
	svc := newIngestion(repo, c)
	batch := []connector.ShopCard{
		listing("rush", "SV4a", "349/190", "リザードンex", 12800, 2),
		listing("rush", "sv2a", "025", "ピカチュウ", 500, 8),
	}

	for i := 0; i < 2; i++ {
		res, err := svc.IngestBatch(context.Background(), batch)
		require.NoError(t, err)
		require.Equal(t, 2, res.SuccessCount)
		require.Equal(t, 0, res.FailedCount)
	}

	require.Len(t, repo.pricesFor("sv4a-349"), 1)
	require.Len(t, repo.pricesFor("sv2a-025"), 1)
	require.Len(t, repo.shops, 1)
	require.Len(t, repo.cards, 2)
	require.Contains(t, repo.sets, "sv4a")
	require.Equal(t, "https://rush.example", *repo.shops["rush"].URL)
}

func TestIngestBatch_InsertionPolicy(t *testing.T) {
	repo := newStubRepo()
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newIngestion(repo, c)
	ctx := context.Background()
	ingest := func(price int64, stock int) {
		t.Helper()
		res, err := svc.IngestBatch(ctx, []connector.ShopCard{listing("rush", "sv3a", "001", "ニャオハ", price, stock)})
		require.NoError(t, err)
		require.Equal(t, 1, res.SuccessCount)
	}

	ingest(1000, 10)
	c.Advance(30 * time.Minute)
	ingest(1000, 10)
	rows := repo.pricesFor("sv3a-001")
	require.Len(t, rows, 1)
	require.Equal(t, c.t, rows[0].UpdatedAt)

	ingest(1200, 10)
	require.Len(t, repo.pricesFor("sv3a-001"), 2)

	// Touches keep the stored stock at 10: 14 is within 50% of it, 22 is not.
	ingest(1200, 14)
	require.Len(t, repo.pricesFor("sv3a-001"), 2)
	ingest(1200, 22)
	require.Len(t, repo.pricesFor("sv3a-001"), 3)

	c.Advance(61 * time.Minute)
	ingest(1200, 22)
	rows = repo.pricesFor("sv3a-001")
	require.Len(t, rows, 4)
	require.Equal(t, "NM", rows[3].Condition)
	require.EqualValues(t, 0, rows[3].ShippingJPY)
}

func TestShouldInsert(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := &models.CardPrice{PriceJPY: 1000, StockQty: intPtr(10), UpdatedAt: now.Add(-10 * time.Minute)}
	p := DefaultInsertionPolicy()

	cases := []struct {
		name     string
		existing *models.CardPrice
		price    int64
		stock    *int
		at       time.Time
		want     bool
	}{
		{"no existing row", nil, 1000, intPtr(1), now, true},
		{"unchanged", existing, 1000, intPtr(10), now, false},
		{"price changed", existing, 999, intPtr(10), now, true},
		{"stock within threshold", existing, 1000, intPtr(15), now, false},
		{"stock beyond threshold", existing, 1000, intPtr(16), now, true},
		{"stock drop beyond threshold", existing, 1000, intPtr(4), now, true},
		{"sold out", existing, 1000, intPtr(0), now, true},
		{"back in stock", &models.CardPrice{PriceJPY: 1000, StockQty: intPtr(0), UpdatedAt: now.Add(-10 * time.Minute)}, 1000, intPtr(3), now, true},
		{"count unknown", existing, 1000, nil, now, false},
		{"stale", existing, 1000, intPtr(10), now.Add(51 * time.Minute), true},
	}
	for _, tc := range cases {
		if got := p.ShouldInsert(tc.existing, tc.price, tc.stock, tc.at); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestIngestBatch_PartialFailure(t *testing.T) {
	repo := newStubRepo()
	repo.cardErr["sv1-003"] = errors.New("constraint violation")
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newIngestion(repo, c)

	batch := []connector.ShopCard{
		listing("labo", "sv1", "001", "A", 100, 1),
		listing("labo", "sv1", "002", "B", 200, 1),
		listing("labo", "sv1", "003", "C", 300, 1),
		listing("labo", "sv1", "004", "D", 400, 1),
		listing("labo", "sv1", "005", "E", 500, 1),
	}
	res, err := svc.IngestBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, 4, res.SuccessCount)
	require.Equal(t, 1, res.FailedCount)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "C", res.Errors[0].Card)
}

func TestIngestBatch_ShopFailureFailsGroupOnly(t *testing.T) {
	repo := newStubRepo()
	repo.shopErr["broken"] = errors.New("shop write failed")
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newIngestion(repo, c)

	res, err := svc.IngestBatch(context.Background(), []connector.ShopCard{
		listing("broken", "sv1", "001", "A", 100, 1),
		listing("ok", "sv1", "002", "B", 200, 1),
		listing("broken", "sv1", "003", "C", 300, 1),
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.SuccessCount)
	require.Equal(t, 2, res.FailedCount)
}

func TestIngestBatch_Defaults(t *testing.T) {
	repo := newStubRepo()
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newIngestion(repo, c)

	noCount := listing("rush", "s12", "", "ルギアV", 2200, 0)
	noCount.Stock = nil
	noCount.Condition = ""
	soldOut := listing("rush", "s12", "110", "ルギアVSTAR", 3000, 0)
	soldOut.Stock = nil
	soldOut.StockStatus = connector.StockOutOfStock
	free := listing("rush", "s12", "111", "ゼロ", 0, 1)

	res, err := svc.IngestBatch(context.Background(), []connector.ShopCard{noCount, soldOut, free})
	require.NoError(t, err)
	require.Equal(t, 2, res.SuccessCount)
	require.Equal(t, 1, res.FailedCount)

	rows := repo.pricesFor(connector.CardID(noCount))
	require.Len(t, rows, 1)
	require.Equal(t, 1, *rows[0].StockQty)
	require.Equal(t, "NM", rows[0].Condition)
	require.Equal(t, "000", repo.cards[connector.CardID(noCount)].Number)

	rows = repo.pricesFor("s12-110")
	require.Len(t, rows, 1)
	require.Equal(t, 0, *rows[0].StockQty)
}

func TestIngestBatch_MergeOnlyFillsMissingFields(t *testing.T) {
	repo := newStubRepo()
	c := &clock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newIngestion(repo, c)

	first := listing("rush", "sv4a", "349", "リザードンex", 12800, 1)
	second := listing("labo", "sv4a", "349", "リザードンex", 12500, 1)
	second.Rarity = "SAR"
	second.ImageURL = "https://img.example/349.jpg"
	third := listing("h2", "sv4a", "349", "リザードンex", 12900, 1)
	third.Rarity = "SR"

	_, err := svc.IngestBatch(context.Background(), []connector.ShopCard{first, second, third})
	require.NoError(t, err)

	card := repo.cards["sv4a-349"]
	require.NotNil(t, card.Rarity)
	require.Equal(t, "SAR", *card.Rarity)
	require.Equal(t, "https://img.example/349.jpg", *card.ImageURL)
	require.Len(t, repo.pricesFor("sv4a-349"), 3)
}

func TestIngestBatch_NoStore(t *testing.T) {
	svc := &IngestionService{}
	_, err := svc.IngestBatch(context.Background(), nil)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
