package evtrack

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"evtrack-backend/lib/htmlutil"
	"evtrack-backend/lib/selector"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Visitor is the slice of a list row the search can see.
type Visitor struct {
	Uuid      string
	Status    string
	FirstName string
	LastName  string
	Mobile    string
}

func (v Visitor) FullName() string {
	return strings.TrimSpace(v.FirstName + " " + v.LastName)
}

// SearchResult tags "no such visitor" apart from errors: an empty table
// is an answer, not a failure.
type SearchResult struct {
	Found   bool
	Visitor Visitor
}

var noRecordPlaceholders = []string{
	"no matching records found",
	"no data available",
}

var uuidLinkChain = selector.Chain{
	{Kind: selector.HrefContains, Value: "edit?uuid="},
}

// SearchVisitors runs a single exact search against the visitor list and
// reads the first result row.
func (c *Client) SearchVisitors(ctx context.Context, term string) (SearchResult, error) {
	ctx, span := tracer.Start(ctx, "SearchVisitors")
	defer span.End()
	span.SetAttributes(attribute.String("term", term))

	page, err := c.Session.Navigate(ctx, listPath+"?search="+url.QueryEscape(term))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch visitor list")
		return SearchResult{}, err
	}
	if onLoginPage(page) {
		return SearchResult{}, ErrNotAuthenticated
	}

	row := page.Doc.Find("#listTable tbody tr").First()
	if row.Length() == 0 {
		return SearchResult{}, nil
	}

	rowText := strings.ToLower(htmlutil.CleanText(row.Text()))
	for _, placeholder := range noRecordPlaceholders {
		if strings.Contains(rowText, placeholder) {
			return SearchResult{}, nil
		}
	}

	link, _, ok := uuidLinkChain.Find(row)
	if !ok {
		// a row without an edit link is as good as no row
		slog.Warn("search result row has no edit link", "term", term)
		return SearchResult{}, nil
	}
	href, _ := link.Attr("href")
	uuid := uuidFromHref(href)

	cells := row.Find("td")
	visitor := Visitor{
		Uuid:      uuid,
		Status:    cellText(cells, 0),
		FirstName: cellText(cells, 1),
		LastName:  cellText(cells, 2),
		Mobile:    cellText(cells, 3),
	}
	return SearchResult{Found: true, Visitor: visitor}, nil
}

func uuidFromHref(href string) string {
	parsed, err := url.Parse(href)
	if err == nil {
		if uuid := parsed.Query().Get("uuid"); uuid != "" {
			return uuid
		}
	}
	_, after, found := strings.Cut(href, "uuid=")
	if !found {
		return ""
	}
	uuid, _, _ := strings.Cut(after, "&")
	return uuid
}

func cellText(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return ""
	}
	return htmlutil.CleanText(cells.Eq(i).Text())
}

// SearchVisitorsRelaxed escalates from the exact term through case
// variants to single-token searches. Token matches only count when the
// token actually appears in the returned name.
func (c *Client) SearchVisitorsRelaxed(ctx context.Context, term string) (SearchResult, error) {
	ctx, span := tracer.Start(ctx, "SearchVisitorsRelaxed")
	defer span.End()

	term = strings.TrimSpace(term)

	type variant struct {
		term        string
		verifyToken string
	}
	variants := []variant{
		{term: term},
		{term: strings.ToLower(term)},
		{term: cases.Title(language.English).String(strings.ToLower(term))},
		{term: strings.ToUpper(term)},
	}
	if tokens := strings.Fields(term); len(tokens) > 1 {
		first, last := tokens[0], tokens[len(tokens)-1]
		variants = append(variants,
			variant{term: first, verifyToken: first},
			variant{term: last, verifyToken: last},
		)
	}

	seen := map[string]bool{}
	for _, v := range variants {
		if v.term == "" || seen[v.term] {
			continue
		}
		seen[v.term] = true

		result, err := c.SearchVisitors(ctx, v.term)
		if err != nil {
			return SearchResult{}, err
		}
		if !result.Found {
			continue
		}
		if v.verifyToken != "" && !strings.Contains(
			strings.ToLower(result.Visitor.FullName()),
			strings.ToLower(v.verifyToken),
		) {
			slog.Debug("rejecting token search match",
				"token", v.verifyToken, "name", result.Visitor.FullName())
			continue
		}
		return result, nil
	}
	return SearchResult{}, nil
}
