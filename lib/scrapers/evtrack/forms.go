package evtrack

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"evtrack-backend/lib/htmlutil"
	"evtrack-backend/lib/selector"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

// field is one logical value destined for a form control, located through
// a ranked chain. Checkbox fields carry the desired state instead of
// text.
type field struct {
	key      string
	locate   selector.Chain
	value    string
	checkbox *bool
	required bool
}

// controlChain is the default lookup priority for a control: id first,
// then name, then a placeholder fragment.
func controlChain(name string) selector.Chain {
	return selector.Chain{
		{Kind: selector.Id, Value: name},
		{Kind: selector.Name, Value: name},
		{Kind: selector.PlaceholderContains, Value: name},
	}
}

func textField(key, name, value string) field {
	return field{key: key, locate: controlChain(name), value: value}
}

func checkboxField(key, name string, want bool) field {
	return field{key: key, locate: controlChain(name), checkbox: &want}
}

// applyFields resolves each field against the form and folds the desired
// values into overrides for submission. Individual fields are best
// effort: a miss is logged and skipped. A missing required field is an
// error, reported before anything is submitted.
func applyFields(form *goquery.Selection, fields []field, overrides url.Values) error {
	for _, f := range fields {
		if f.checkbox == nil && f.value == "" && !f.required {
			continue
		}

		control, _, ok := f.locate.Find(form)
		if !ok {
			if f.required {
				return fmt.Errorf("required field %q not found on form", f.key)
			}
			slog.Warn("skipping field, no control found", "field", f.key)
			continue
		}

		name := control.AttrOr("name", "")
		if name == "" {
			if f.required {
				return fmt.Errorf("required field %q has an unnamed control", f.key)
			}
			slog.Warn("skipping field, control has no name", "field", f.key)
			continue
		}

		switch {
		case f.checkbox != nil:
			applyCheckbox(control, name, *f.checkbox, overrides)
		case goquery.NodeName(control) == "select":
			value, ok := resolveSelectValue(control, f.value)
			if !ok {
				if f.required {
					return fmt.Errorf("required field %q has no option matching %q", f.key, f.value)
				}
				slog.Warn("skipping select, no matching option",
					"field", f.key, "value", f.value)
				continue
			}
			overrides.Set(name, value)
		default:
			if f.required && strings.TrimSpace(f.value) == "" {
				return fmt.Errorf("required field %q is empty", f.key)
			}
			overrides.Set(name, f.value)
		}
	}
	return nil
}

// applyCheckbox only touches the value when the desired state differs
// from the control's current one.
func applyCheckbox(control *goquery.Selection, name string, want bool, overrides url.Values) {
	_, checked := control.Attr("checked")
	if checked == want {
		return
	}
	if want {
		overrides.Set(name, control.AttrOr("value", "on"))
		return
	}
	overrides.Del(name)
	// mark the deletion so the form serializer cannot re-add it
	overrides[name] = nil
}

// resolveSelectValue maps a desired value onto one of the select's
// options: exact value match first, then the option whose visible text is
// nearest (Jaro-Winkler), then a partial text scan.
func resolveSelectValue(sel *goquery.Selection, want string) (string, bool) {
	type option struct {
		value string
		text  string
	}
	var options []option
	sel.Find("option").Each(func(_ int, o *goquery.Selection) {
		options = append(options, option{
			value: o.AttrOr("value", ""),
			text:  htmlutil.CleanText(o.Text()),
		})
	})
	if len(options) == 0 {
		return "", false
	}

	for _, o := range options {
		if strings.EqualFold(o.value, want) {
			return o.value, true
		}
	}

	best := -1
	bestSimilarity := 0.0
	for i, o := range options {
		if o.text == "" {
			continue
		}
		similarity := matchr.JaroWinkler(strings.ToLower(o.text), strings.ToLower(want), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = i
		}
	}
	if best >= 0 && bestSimilarity >= 0.9 {
		return options[best].value, true
	}

	for _, o := range options {
		if o.text != "" && strings.Contains(strings.ToLower(o.text), strings.ToLower(want)) {
			return o.value, true
		}
	}
	return "", false
}
