// Package selector expresses the "try these locators in order" pattern that
// shows up all over scraping code as a single ranked chain, instead of
// repeating the candidate loop at every call site.
package selector

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Kind int

const (
	// Css matches a raw CSS selector.
	Css Kind = iota
	// Id matches an element by its id attribute.
	Id
	// Name matches an element by its name attribute.
	Name
	// PlaceholderContains matches an element whose placeholder contains
	// the value, case-insensitively.
	PlaceholderContains
	// HrefContains matches an anchor whose href contains the value.
	HrefContains
)

func (k Kind) String() string {
	switch k {
	case Css:
		return "css"
	case Id:
		return "id"
	case Name:
		return "name"
	case PlaceholderContains:
		return "placeholder-contains"
	case HrefContains:
		return "href-contains"
	}
	return "unknown"
}

// Locator is a single (kind, value) lookup strategy.
type Locator struct {
	Kind  Kind
	Value string
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%q", l.Kind, l.Value)
}

func (l Locator) find(doc *goquery.Selection) *goquery.Selection {
	switch l.Kind {
	case Css:
		return doc.Find(l.Value)
	case Id:
		return doc.Find("#" + l.Value)
	case Name:
		return doc.Find(fmt.Sprintf(`[name=%q]`, l.Value))
	case PlaceholderContains:
		want := strings.ToLower(l.Value)
		return doc.Find("[placeholder]").FilterFunction(
			func(_ int, s *goquery.Selection) bool {
				placeholder, _ := s.Attr("placeholder")
				return strings.Contains(strings.ToLower(placeholder), want)
			},
		)
	case HrefContains:
		return doc.Find("a[href]").FilterFunction(
			func(_ int, s *goquery.Selection) bool {
				href, _ := s.Attr("href")
				return strings.Contains(href, l.Value)
			},
		)
	}
	return doc.Slice(0, 0)
}

// Chain is an ordered list of locators, highest priority first.
type Chain []Locator

// Find evaluates the chain against the document and returns the first
// locator that matches, together with the matched selection. ok is false
// when no locator matched anything.
func (c Chain) Find(doc *goquery.Selection) (sel *goquery.Selection, matched Locator, ok bool) {
	for _, locator := range c {
		found := locator.find(doc)
		if found.Length() > 0 {
			return found.First(), locator, true
		}
	}
	return nil, Locator{}, false
}

func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = l.String()
	}
	return strings.Join(parts, " > ")
}
