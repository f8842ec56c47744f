package connector

import (
	"strings"
)

const unknownSet = "unknown"

// CardID derives the catalogue key for a listing. With both a set code and a
// collector number the key is "{set}-{number}"; otherwise a source id that
// already has that shape is reused, and anything else falls under "unknown".
// A listing with neither a number nor a source id is keyed by its name, so the
// key does not depend on where the listing appeared in the results.
func CardID(c ShopCard) string {
	set := normalizeKeyPart(c.SetCode)
	number := NormalizeCardNumber(c.CardNumber)
	if set != "" && number != "" {
		return set + "-" + number
	}
	if id := normalizeKeyPart(c.ID); strings.Contains(id, "-") && set == "" {
		return id
	}
	if set == "" {
		set = unknownSet
	}
	if number == "" {
		number = normalizeKeyPart(c.ID)
	}
	if number == "" {
		number = normalizeKeyPart(CleanName(c.Name))
	}
	if number == "" {
		number = "000"
	}
	return set + "-" + number
}

// NormalizeCardNumber drops a "/total" suffix: "205/190" becomes "205".
func NormalizeCardNumber(n string) string {
	n = strings.TrimSpace(n)
	if i := strings.Index(n, "/"); i >= 0 {
		n = n[:i]
	}
	return normalizeKeyPart(n)
}

func normalizeKeyPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "")
}
