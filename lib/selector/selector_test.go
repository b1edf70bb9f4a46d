package selector

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, fragment string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	require.NoError(t, err)
	return doc.Selection
}

func TestChainRankOrder(t *testing.T) {
	doc := parse(t, `
		<form>
			<input name="username" id="user">
			<input type="email" name="email">
		</form>
	`)

	chain := Chain{
		{Name, "username"},
		{Css, `input[type="email"]`},
	}
	sel, matched, ok := chain.Find(doc)
	require.True(t, ok)
	require.Equal(t, Locator{Name, "username"}, matched)
	id, _ := sel.Attr("id")
	require.Equal(t, "user", id)
}

func TestChainFallsThrough(t *testing.T) {
	doc := parse(t, `
		<form>
			<input type="email" name="email">
		</form>
	`)

	chain := Chain{
		{Name, "username"},
		{Css, `input[type="email"]`},
	}
	_, matched, ok := chain.Find(doc)
	require.True(t, ok)
	require.Equal(t, Css, matched.Kind)
}

func TestChainNotFound(t *testing.T) {
	doc := parse(t, `<div></div>`)

	chain := Chain{{Name, "username"}, {Id, "user"}}
	_, _, ok := chain.Find(doc)
	require.False(t, ok)
}

func TestPlaceholderContainsIsCaseInsensitive(t *testing.T) {
	doc := parse(t, `<input placeholder="Mobile Number" name="mobileNumberPlaceholder">`)

	sel, _, ok := Chain{{PlaceholderContains, "mobile"}}.Find(doc)
	require.True(t, ok)
	name, _ := sel.Attr("name")
	require.Equal(t, "mobileNumberPlaceholder", name)
}

func TestHrefContains(t *testing.T) {
	doc := parse(t, `
		<a href="/visitor/list">list</a>
		<a href="/visitor/edit?uuid=abc">edit</a>
	`)

	sel, _, ok := Chain{{HrefContains, "edit?uuid="}}.Find(doc)
	require.True(t, ok)
	require.Equal(t, "edit", sel.Text())
}
