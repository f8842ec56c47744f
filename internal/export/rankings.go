// Package export renders rankings as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nakatash/pokeca-search/internal/models"
	"github.com/nakatash/pokeca-search/internal/repository"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var rankingHeader = []any{"rank", "card_id", "name", "set", "number", "rarity", "current_price_jpy", "delta_percent", "stock_qty", "updated_at"}

// Filename is the attachment name for a ranking export.
func Filename(rankingType string) string {
	return fmt.Sprintf("rankings_%s.xlsx", rankingType)
}

// WriteRankings writes one sheet named after rankingType with a header row
// followed by rows in rank order.
func WriteRankings(w io.Writer, rankingType string, rows []repository.RankingRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := rankingType
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &rankingHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := rankingValues(rankingType, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "B", "C", 24); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func rankingValues(rankingType string, row repository.RankingRow) []any {
	values := []any{
		row.Rank,
		row.CardID,
		row.NameJP,
		deref(row.SetCode),
		row.Number,
		deref(row.Rarity),
		nil,
		nil,
		nil,
		row.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
	if row.CurrentPrice != nil {
		values[6] = *row.CurrentPrice
	}
	delta := row.DeltaPercent24h
	if rankingType == models.RankingSpike7d || rankingType == models.RankingDrop7d {
		delta = row.DeltaPercent7d
	}
	if delta.Valid {
		f, _ := delta.Decimal.Float64()
		values[7] = f
	}
	if row.StockQty != nil {
		values[8] = *row.StockQty
	}
	return values
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
