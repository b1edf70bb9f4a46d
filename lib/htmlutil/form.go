package htmlutil

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// FormValues collects the current state of a form into url.Values the way
// a browser would serialize it on submit: named inputs (checkboxes and
// radios only when checked), selects (selected option, falling back to the
// first option) and textareas. Submit buttons are left out so callers can
// choose which one to "press" via an override.
func FormValues(form *goquery.Selection) url.Values {
	values := url.Values{}

	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		inputType, _ := input.Attr("type")
		switch inputType {
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); !checked {
				return
			}
			value, ok := input.Attr("value")
			if !ok {
				value = "on"
			}
			values.Add(name, value)
		case "submit", "button", "image", "reset", "file":
		default:
			value, _ := input.Attr("value")
			values.Add(name, value)
		}
	})

	form.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		options := sel.Find("option")
		if options.Length() == 0 {
			return
		}
		selected := options.Filter("[selected]")
		if selected.Length() == 0 {
			selected = options.First()
		}
		value, ok := selected.First().Attr("value")
		if !ok {
			value = CleanText(selected.First().Text())
		}
		values.Add(name, value)
	})

	form.Find("textarea").Each(func(_ int, area *goquery.Selection) {
		name, ok := area.Attr("name")
		if !ok || name == "" {
			return
		}
		values.Add(name, area.Text())
	})

	return values
}
