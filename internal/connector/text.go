package connector

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// DefaultLowStockThreshold is the largest count still reported as low stock.
const DefaultLowStockThreshold = 3

var (
	priceNoise    = regexp.MustCompile(`[,，、¥￥円]`)
	firstDigits   = regexp.MustCompile(`\d+`)
	nonDigits     = regexp.MustCompile(`\D`)
	bracketed     = regexp.MustCompile(`【[^】]*】`)
	parenthesized = regexp.MustCompile(`[(（][^)）]*[)）]`)
	spaces        = regexp.MustCompile(`\s+`)
	countPattern  = regexp.MustCompile(`(\d+)\s*(?:個|点|枚)`)
	stockNumber   = regexp.MustCompile(`(?:残り|在庫数?)\s*[:：]?\s*(\d+)`)
)

// ParsePrice extracts whole yen from storefront text such as "￥１２,８００円".
// Text without digits yields 0.
func ParsePrice(s string) int64 {
	s = width.Narrow.String(s)
	s = priceNoise.ReplaceAllString(s, "")
	m := firstDigits.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseStockCount keeps only digits; ok is false when none are present.
func ParseStockCount(s string) (int, bool) {
	digits := nonDigits.ReplaceAllString(width.Narrow.String(s), "")
	if digits == "" {
		return 0, false
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ClassifyStock maps free stock text to a status and, when the text carries a
// count, that count. Empty text is treated as in stock.
func ClassifyStock(text string, lowThreshold int) (StockStatus, *int) {
	if lowThreshold <= 0 {
		lowThreshold = DefaultLowStockThreshold
	}
	t := strings.ToLower(strings.TrimSpace(width.Narrow.String(text)))
	if t == "" {
		return StockInStock, nil
	}
	for _, kw := range []string{"売切", "売り切れ", "在庫切れ", "在庫なし", "sold out", "soldout", "out of stock"} {
		if strings.Contains(t, kw) {
			zero := 0
			return StockOutOfStock, &zero
		}
	}
	if strings.Contains(t, "予約") || strings.Contains(t, "pre-order") || strings.Contains(t, "preorder") {
		return StockPreOrder, nil
	}
	if n, ok := extractCount(t); ok {
		switch {
		case n == 0:
			return StockOutOfStock, &n
		case n <= lowThreshold:
			return StockLowStock, &n
		default:
			return StockInStock, &n
		}
	}
	for _, kw := range []string{"残りわずか", "わずか", "残り", "few"} {
		if strings.Contains(t, kw) {
			return StockLowStock, nil
		}
	}
	return StockInStock, nil
}

func extractCount(t string) (int, bool) {
	for _, re := range []*regexp.Regexp{countPattern, stockNumber} {
		if m := re.FindStringSubmatch(t); len(m) == 2 {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// CleanName strips bracketed annotations and a leading bullet, then
// collapses whitespace.
func CleanName(s string) string {
	s = bracketed.ReplaceAllString(s, "")
	s = parenthesized.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "・")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SetPattern infers a set from listing titles.
type SetPattern struct {
	Pattern *regexp.Regexp
	Code    string
	Name    string
}

// DefaultSetPatterns lists the sets recognised in Japanese storefront titles.
var DefaultSetPatterns = []SetPattern{
	{Pattern: regexp.MustCompile(`(?i)SV4a|シャイニートレジャー`), Code: "sv4a", Name: "シャイニートレジャーex"},
	{Pattern: regexp.MustCompile(`(?i)SV3a|レイジングサーフ`), Code: "sv3a", Name: "レイジングサーフ"},
	{Pattern: regexp.MustCompile(`(?i)SV2a|ポケモンカード151`), Code: "sv2a", Name: "ポケモンカード151"},
	{Pattern: regexp.MustCompile(`(?i)SV1V|バイオレットex`), Code: "sv1v", Name: "バイオレットex"},
	{Pattern: regexp.MustCompile(`(?i)SV1S|スカーレットex`), Code: "sv1s", Name: "スカーレットex"},
}

// InferSet returns the first matching set, or empty strings.
func InferSet(title string, patterns []SetPattern) (code, name string) {
	for _, p := range patterns {
		if p.Pattern.MatchString(title) {
			return p.Code, p.Name
		}
	}
	return "", ""
}

// rarityPatterns is ordered so longer codes win over their prefixes.
var rarityPatterns = []struct {
	pattern *regexp.Regexp
	rarity  string
}{
	{regexp.MustCompile(`\bSAR\b`), "SAR"},
	{regexp.MustCompile(`\bSR\b`), "SR"},
	{regexp.MustCompile(`\bHR\b`), "HR"},
	{regexp.MustCompile(`\bUR\b`), "UR"},
	{regexp.MustCompile(`\bAR\b`), "AR"},
	{regexp.MustCompile(`\bRR\b`), "RR"},
	{regexp.MustCompile(`\bR\b`), "R"},
	{regexp.MustCompile(`\bU\b`), "U"},
	{regexp.MustCompile(`\bC\b`), "C"},
}

func InferRarity(title string) string {
	t := width.Narrow.String(title)
	for _, p := range rarityPatterns {
		if p.pattern.MatchString(t) {
			return p.rarity
		}
	}
	return ""
}

var cardNumberPattern = regexp.MustCompile(`(\d{1,4})\s*/\s*\d{1,4}`)

// InferCardNumber finds a "205/190" style collector number and returns "205".
func InferCardNumber(title string) string {
	m := cardNumberPattern.FindStringSubmatch(width.Narrow.String(title))
	if len(m) == 2 {
		return m[1]
	}
	return ""
}
