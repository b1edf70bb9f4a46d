package evtrack

import (
	"strings"

	"evtrack-backend/lib/browser"
	"evtrack-backend/lib/htmlutil"
	"evtrack-backend/lib/selector"
)

type Outcome int

const (
	// OutcomeSaved means the post landed back on a known page family.
	OutcomeSaved Outcome = iota
	// OutcomeValidationFailed means the site rendered an inline error
	// banner; its text is in Message.
	OutcomeValidationFailed
	// OutcomeUnclear means neither signal was present. Treated as a
	// soft success but reported distinctly so callers can tell.
	OutcomeUnclear
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSaved:
		return "saved"
	case OutcomeValidationFailed:
		return "validation-failed"
	case OutcomeUnclear:
		return "unclear"
	}
	return "unknown"
}

type SaveResult struct {
	Outcome Outcome
	Message string
}

var errorBannerChain = selector.Chain{
	{Kind: selector.Css, Value: ".alert-danger"},
	{Kind: selector.Css, Value: ".error"},
}

var savedPathFamilies = []string{"edit", "list", "dashboard"}

// classifySave decides what happened after a save post: an inline error
// banner wins, then a recognized URL family counts as saved, anything
// else is unclear.
func classifySave(page *browser.Page) SaveResult {
	if banner, _, ok := errorBannerChain.Find(page.Doc.Selection); ok {
		text := htmlutil.CleanText(banner.Text())
		if text != "" {
			return SaveResult{Outcome: OutcomeValidationFailed, Message: text}
		}
	}

	for _, family := range savedPathFamilies {
		if strings.Contains(page.Url.Path, family) {
			return SaveResult{Outcome: OutcomeSaved, Message: "record saved"}
		}
	}
	return SaveResult{
		Outcome: OutcomeUnclear,
		Message: "save submitted but the landing page was not recognized",
	}
}
