package connector

import "testing"

func TestCardID(t *testing.T) {
	cases := []struct {
		name string
		card ShopCard
		want string
	}{
		{"set and number", ShopCard{ID: "12345", SetCode: "sv4a", CardNumber: "205"}, "sv4a-205"},
		{"upper case set", ShopCard{ID: "x", SetCode: "SV4a", CardNumber: "205"}, "sv4a-205"},
		{"number with total", ShopCard{SetCode: "sv4a", CardNumber: "205/190"}, "sv4a-205"},
		{"source id shaped like key", ShopCard{ID: "SV3PT5-4"}, "sv3pt5-4"},
		{"no set", ShopCard{ID: "98765", CardNumber: "12"}, "unknown-12"},
		{"no set no number", ShopCard{ID: "98765"}, "unknown-98765"},
		{"name only", ShopCard{Name: " ピカチュウ ex "}, "unknown-ピカチュウex"},
		{"nothing", ShopCard{}, "unknown-000"},
	}
	for _, tc := range cases {
		if got := CardID(tc.card); got != tc.want {
			t.Fatalf("%s: CardID=%q want %q", tc.name, got, tc.want)
		}
	}
}

func TestCardID_Deterministic(t *testing.T) {
	card := ShopCard{ID: "anything", SetCode: "sv4a", CardNumber: "205", Name: "リザードンex"}
	for i := 0; i < 5; i++ {
		if got := CardID(card); got != "sv4a-205" {
			t.Fatalf("CardID=%q want sv4a-205", got)
		}
	}
}

func TestCardID_IgnoresResultPosition(t *testing.T) {
	a := ShopCard{Name: "ミュウex", ShopName: "p1"}
	b := ShopCard{Name: "ミュウex", ShopName: "p3"}
	if CardID(a) != CardID(b) || CardID(a) != "unknown-ミュウex" {
		t.Fatalf("CardID=%q/%q", CardID(a), CardID(b))
	}
}

func TestConditionStorageCode(t *testing.T) {
	if ConditionNearMint.StorageCode() != "NM" || ConditionPlayed.StorageCode() != "MP" {
		t.Fatalf("unexpected storage codes")
	}
	if Condition("").StorageCode() != "" {
		t.Fatalf("empty condition should map to empty code")
	}
}

func TestSetOriginalPrice(t *testing.T) {
	c := ShopCard{Price: 800}
	c.SetOriginalPrice(1000)
	if c.OriginalPrice == nil || *c.OriginalPrice != 1000 {
		t.Fatalf("original price not set")
	}
	if c.DiscountRate == nil || *c.DiscountRate != 20 {
		t.Fatalf("discount=%v want 20", c.DiscountRate)
	}
}
