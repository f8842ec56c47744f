package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

func TestWriteRankings(t *testing.T) {
	price := int64(12800)
	set := "sv4a"
	rows := []repository.RankingRow{
		{
			Ranking: models.Ranking{
				CardID:         "sv4a-349",
				Type:           models.RankingDrop7d,
				Rank:           1,
				DeltaPercent7d: decimal.NewNullDecimal(decimal.RequireFromString("-37.5")),
				UpdatedAt:      time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC),
			},
			NameJP:       "リザードンex",
			Number:       "349",
			SetCode:      &set,
			CurrentPrice: &price,
		},
		{Ranking: models.Ranking{CardID: "sv2a-025", Type: models.RankingDrop7d, Rank: 2}, NameJP: "ピカチュウ"},
	}

	var buf bytes.Buffer
	if err := WriteRankings(&buf, models.RankingDrop7d, rows); err != nil {
		t.Fatalf("err=%v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(models.RankingDrop7d)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows=%d want 3", len(got))
	}
	if got[0][0] != "rank" || got[0][7] != "delta_percent" {
		t.Fatalf("header=%v", got[0])
	}
	first := got[1]
	if first[0] != "1" || first[1] != "sv4a-349" || first[2] != "リザードンex" || first[3] != "sv4a" {
		t.Fatalf("first=%v", first)
	}
	if first[6] != "12800" || first[7] != "-37.5" {
		t.Fatalf("price=%s delta=%s", first[6], first[7])
	}
	if first[9] != "2026-03-08 12:00:00" {
		t.Fatalf("updated_at=%s", first[9])
	}
	if got[2][1] != "sv2a-025" {
		t.Fatalf("second=%v", got[2])
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(models.RankingLowStock); got != "rankings_low_stock.xlsx" {
		t.Fatalf("filename=%s", got)
	}
}
