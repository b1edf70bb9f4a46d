package evtrack

import (
	"context"
	"fmt"
	"net/url"

	"evtrack-backend/lib/browser"
	"evtrack-backend/lib/htmlutil"
	"evtrack-backend/lib/selector"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var profileFormChain = selector.Chain{
	{Kind: selector.Id, Value: "visitorProfileForm"},
	{Kind: selector.Css, Value: "form[action*=\"visitor/edit\"]"},
	{Kind: selector.Css, Value: "form"},
}

var saveControlChain = selector.Chain{
	{Kind: selector.Css, Value: `button[type="submit"][value="save"]`},
	{Kind: selector.Css, Value: `button[name="action"][value="save"]`},
	{Kind: selector.Id, Value: "submitBtn"},
}

// editPage loads /visitor/edit, optionally for an existing record. A
// redirect back to the login screen is fatal for the request.
func (c *Client) editPage(ctx context.Context, uuid string) (*browser.Page, error) {
	target := editPath
	if uuid != "" {
		target += "?uuid=" + url.QueryEscape(uuid)
	}
	page, err := c.Session.Navigate(ctx, target)
	if err != nil {
		return nil, err
	}
	if onLoginPage(page) {
		return nil, ErrNotAuthenticated
	}
	return page, nil
}

// requireTab asserts that the edit page exposes a tab anchor for the
// given fragment. A missing tab is fatal for the workflow.
func requireTab(page *browser.Page, fragment string) error {
	chain := selector.Chain{{Kind: selector.Css, Value: fmt.Sprintf(`a[href="#%s"]`, fragment)}}
	if _, _, ok := chain.Find(page.Doc.Selection); !ok {
		return fmt.Errorf("edit page has no %q tab", fragment)
	}
	return nil
}

// saveForm locates the save control, presses it by folding its
// name/value pair into the post, and classifies the landing page.
func (c *Client) saveForm(ctx context.Context, page *browser.Page, form *goquery.Selection, overrides url.Values) (SaveResult, *browser.Page, error) {
	control, _, ok := saveControlChain.Find(form)
	if !ok {
		// fall back to searching the whole page, some save buttons
		// live outside the form element
		control, _, ok = saveControlChain.Find(page.Doc.Selection)
	}
	if ok {
		name := control.AttrOr("name", "action")
		value := control.AttrOr("value", "save")
		overrides.Set(name, value)
	} else {
		overrides.Set("action", "save")
	}

	landed, err := c.Session.SubmitForm(ctx, page, form, overrides)
	if err != nil {
		return SaveResult{}, nil, err
	}
	return classifySave(landed), landed, nil
}

// VisitorInput is the writable slice of the profile form. Empty strings
// leave the corresponding control untouched.
type VisitorInput struct {
	FirstName         string
	LastName          string
	Initials          string
	IdentityNr        string
	Company           string
	Email             string
	Address           string
	DateOfBirth       string
	Comments          string
	Mobile            string
	AlternativeNumber string
	Gender            string
	Nationality       string
	CountryOfIssue    string
	VisitReason       string

	FirstNations          *bool
	PeopleOfDetermination *bool
}

var mobileChain = selector.Chain{
	{Kind: selector.Name, Value: "mobileNumberPlaceholder"},
	{Kind: selector.Name, Value: "mobileNumber"},
	{Kind: selector.PlaceholderContains, Value: "mobile"},
}

var alternativeNumberChain = selector.Chain{
	{Kind: selector.Name, Value: "alternativeNumberPlaceholder"},
	{Kind: selector.PlaceholderContains, Value: "alternative"},
}

func (in VisitorInput) fields() []field {
	fields := []field{
		textField("first_name", "firstName", in.FirstName),
		textField("last_name", "lastName", in.LastName),
		textField("initials", "initials", in.Initials),
		textField("identity_nr", "identityNr", in.IdentityNr),
		textField("company", "company", in.Company),
		textField("email", "email", in.Email),
		textField("address", "address", in.Address),
		textField("date_of_birth", "dateOfBirth", in.DateOfBirth),
		textField("comments", "comments", in.Comments),
		{key: "mobile", locate: mobileChain, value: in.Mobile},
		{key: "alternative_number", locate: alternativeNumberChain, value: in.AlternativeNumber},
		textField("gender", "gender", in.Gender),
		textField("nationality", "nationality", in.Nationality),
		textField("country_of_issue", "countryOfIssue", in.CountryOfIssue),
		textField("visit_reason", "visitReasonId", in.VisitReason),
	}
	if in.FirstNations != nil {
		fields = append(fields, checkboxField("first_nations", "firstNations1", *in.FirstNations))
	}
	if in.PeopleOfDetermination != nil {
		fields = append(fields, checkboxField("people_of_determination", "peopleOfDetermination1", *in.PeopleOfDetermination))
	}
	return fields
}

// CreateVisitor fills a blank profile form, attaches any files and
// saves. Returns the new record's uuid when the landing page reveals it.
func (c *Client) CreateVisitor(ctx context.Context, input VisitorInput, attachments []Attachment) (SaveResult, string, error) {
	ctx, span := tracer.Start(ctx, "CreateVisitor")
	defer span.End()

	return c.saveVisitor(ctx, "", input, attachments)
}

// UpdateVisitor edits an existing profile in place.
func (c *Client) UpdateVisitor(ctx context.Context, uuid string, input VisitorInput, attachments []Attachment) (SaveResult, error) {
	ctx, span := tracer.Start(ctx, "UpdateVisitor")
	defer span.End()
	span.SetAttributes(attribute.String("uuid", uuid))

	result, _, err := c.saveVisitor(ctx, uuid, input, attachments)
	return result, err
}

func (c *Client) saveVisitor(ctx context.Context, uuid string, input VisitorInput, attachments []Attachment) (SaveResult, string, error) {
	page, err := c.editPage(ctx, uuid)
	if err != nil {
		return SaveResult{}, "", err
	}

	form, _, ok := profileFormChain.Find(page.Doc.Selection)
	if !ok {
		return SaveResult{}, "", fmt.Errorf("no profile form on edit page")
	}

	overrides := url.Values{}
	if err := applyFields(form, input.fields(), overrides); err != nil {
		return SaveResult{}, "", err
	}

	c.attachFiles(ctx, page, attachments)

	result, landed, err := c.saveForm(ctx, page, form, overrides)
	if err != nil {
		return SaveResult{}, "", err
	}

	savedUuid := uuid
	if savedUuid == "" {
		savedUuid = uuidFromLanding(landed)
	}
	return result, savedUuid, nil
}

func uuidFromLanding(page *browser.Page) string {
	if uuid := page.Url.Query().Get("uuid"); uuid != "" {
		return uuid
	}
	if link, _, ok := uuidLinkChain.Find(page.Doc.Selection); ok {
		href, _ := link.Attr("href")
		return uuidFromHref(href)
	}
	return ""
}

// Profile is the readable state of a visitor's edit page.
type Profile struct {
	Uuid              string `json:"uuid"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Initials          string `json:"initials"`
	IdentityNr        string `json:"identity_nr"`
	Company           string `json:"company"`
	Email             string `json:"email"`
	Address           string `json:"address"`
	DateOfBirth       string `json:"date_of_birth"`
	Comments          string `json:"comments"`
	Mobile            string `json:"mobile"`
	AlternativeNumber string `json:"alternative_number"`
	Gender            string `json:"gender"`
	Nationality       string `json:"nationality"`
	CountryOfIssue    string `json:"country_of_issue"`
	VisitReason       string `json:"visit_reason"`

	FirstNations          bool `json:"first_nations"`
	PeopleOfDetermination bool `json:"people_of_determination"`
}

// VisitorProfile scrapes the current values off a visitor's edit page.
func (c *Client) VisitorProfile(ctx context.Context, uuid string) (Profile, error) {
	ctx, span := tracer.Start(ctx, "VisitorProfile")
	defer span.End()
	span.SetAttributes(attribute.String("uuid", uuid))

	page, err := c.editPage(ctx, uuid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load edit page")
		return Profile{}, err
	}

	form, _, ok := profileFormChain.Find(page.Doc.Selection)
	if !ok {
		return Profile{}, fmt.Errorf("no profile form on edit page")
	}

	values := htmlutil.FormValues(form)
	mobile := values.Get("mobileNumberPlaceholder")
	if mobile == "" {
		mobile = values.Get("mobileNumber")
	}

	return Profile{
		Uuid:              uuid,
		FirstName:         values.Get("firstName"),
		LastName:          values.Get("lastName"),
		Initials:          values.Get("initials"),
		IdentityNr:        values.Get("identityNr"),
		Company:           values.Get("company"),
		Email:             values.Get("email"),
		Address:           values.Get("address"),
		DateOfBirth:       values.Get("dateOfBirth"),
		Comments:          values.Get("comments"),
		Mobile:            mobile,
		AlternativeNumber: values.Get("alternativeNumberPlaceholder"),
		Gender:            values.Get("gender"),
		Nationality:       values.Get("nationality"),
		CountryOfIssue:    values.Get("countryOfIssue"),
		VisitReason:       values.Get("visitReasonId"),

		FirstNations:          values.Has("firstNations1"),
		PeopleOfDetermination: values.Has("peopleOfDetermination1"),
	}, nil
}
