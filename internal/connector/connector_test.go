package connector

import (
	"context"
	"errors"
	"testing"
)

type detailOnly struct {
	cards map[string]*ShopCard
	fail  map[string]bool
	calls int
}

func (d *detailOnly) Source() string   { return "stub" }
func (d *detailOnly) ShopName() string { return "Stub" }

func (d *detailOnly) SearchCards(ctx context.Context, params SearchParams) (*SearchResult, error) {
	return &SearchResult{}, nil
}

func (d *detailOnly) GetCardDetail(ctx context.Context, id string) (*ShopCard, error) {
	d.calls++
	if d.fail[id] {
		return nil, errors.New("boom")
	}
	return d.cards[id], nil
}

func TestCheckPriceUpdates_SkipsFailuresAndMissing(t *testing.T) {
	c := &detailOnly{
		cards: map[string]*ShopCard{
			"a": {ID: "a", Price: 100},
			"c": {ID: "c", Price: 300},
		},
		fail: map[string]bool{"b": true},
	}
	got := CheckPriceUpdates(context.Background(), c, []string{"a", "b", "missing", "c"})
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("got=%+v", got)
	}
	if c.calls != 4 {
		t.Fatalf("calls=%d want 4", c.calls)
	}
}

func TestCheckPriceUpdates_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &detailOnly{cards: map[string]*ShopCard{"a": {ID: "a"}}}
	if got := CheckPriceUpdates(ctx, c, []string{"a"}); len(got) != 0 || c.calls != 0 {
		t.Fatalf("got=%d calls=%d", len(got), c.calls)
	}
}

func TestSearchParamsNormalize(t *testing.T) {
	p := SearchParams{Query: " ex "}.Normalize(20)
	if p.Page != 1 || p.Limit != 20 {
		t.Fatalf("page=%d limit=%d", p.Page, p.Limit)
	}
}
