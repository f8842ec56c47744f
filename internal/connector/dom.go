package connector

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectItems tries each primary selector in order and returns the first
// non-empty match; when none match, the secondary list is tried the same way.
func SelectItems(doc *goquery.Document, primary, secondary []string) *goquery.Selection {
	for _, set := range [][]string{primary, secondary} {
		for _, sel := range set {
			if found := doc.Find(sel); found.Length() > 0 {
				return found
			}
		}
	}
	return doc.Find("__none__")
}

// FirstText returns the trimmed text of the first candidate that yields
// any. When useTitle is set an element's title attribute is accepted in
// place of empty text.
func FirstText(s *goquery.Selection, candidates []string, useTitle bool) string {
	for _, sel := range candidates {
		var out string
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := strings.TrimSpace(el.Text())
			if text == "" && useTitle {
				text = strings.TrimSpace(el.AttrOr("title", ""))
			}
			if text != "" {
				out = text
				return false
			}
			return true
		})
		if out != "" {
			return out
		}
	}
	return ""
}

// FirstAttr returns the first non-empty value among attrs on the first
// element matching any candidate, in candidate order.
func FirstAttr(s *goquery.Selection, candidates []string, attrs ...string) string {
	for _, sel := range candidates {
		el := s.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		for _, a := range attrs {
			if v := strings.TrimSpace(el.AttrOr(a, "")); v != "" {
				return v
			}
		}
	}
	return ""
}

// OwnAttr reads the first non-empty attribute on the element itself.
func OwnAttr(s *goquery.Selection, attrs ...string) string {
	for _, a := range attrs {
		if v := strings.TrimSpace(s.AttrOr(a, "")); v != "" {
			return v
		}
	}
	return ""
}

// AbsoluteURL resolves ref against base. Protocol-relative refs get https.
func AbsoluteURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// BaseURL reduces a listing URL to scheme://host.
func BaseURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
