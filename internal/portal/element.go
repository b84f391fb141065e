package portal

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is a node of the page that was current when it was looked up
type Element struct {
	sel *goquery.Selection
}

// Text returns the element's text with whitespace runs collapsed and trimmed,
// which is how a browser reports visible text.
func (e Element) Text() string {
	if e.sel == nil {
		return ""
	}
	return normalizeSpace(e.sel.Text())
}

// Attr returns the attribute value, or "" when it is absent
func (e Element) Attr(name string) string {
	if e.sel == nil {
		return ""
	}
	return e.sel.AttrOr(name, "")
}

// Tag returns the lower-case element name
func (e Element) Tag() string {
	if e.sel == nil {
		return ""
	}
	return goquery.NodeName(e.sel)
}

// FindAll returns descendants matching the CSS selector
func (e Element) FindAll(selector string) []Element {
	if e.sel == nil {
		return nil
	}
	return wrap(e.sel.Find(selector))
}

// NextSiblings returns following siblings matching the CSS selector
func (e Element) NextSiblings(selector string) []Element {
	if e.sel == nil {
		return nil
	}
	return wrap(e.sel.NextAllFiltered(selector))
}

func wrap(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, Element{sel: s})
	})
	return out
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
