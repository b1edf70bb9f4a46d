package evtrack

import (
	"context"
	"fmt"
	"net/url"

	"evtrack-backend/lib/selector"

	"go.opentelemetry.io/otel/attribute"
)

// CredentialInput mirrors the credential form on the credentials tab.
// The unique identifier is mandatory: without it the workflow aborts
// before anything is posted.
type CredentialInput struct {
	ReaderType       string
	UniqueIdentifier string
	Pin              string
	ActiveDate       string
	ActiveTime       string
	ExpiryDate       string
	ExpiryTime       string
	UseLimit         string
	Comments         string
	Status           string
	AccessControlled *bool
}

func (in CredentialInput) Validate() error {
	if in.UniqueIdentifier == "" {
		return fmt.Errorf("credential needs a unique identifier")
	}
	return nil
}

// The site renders the identifier input under several names depending on
// reader type, so the chain is long.
var uniqueIdentifierChain = selector.Chain{
	{Kind: selector.Id, Value: "uniqueIdentifier"},
	{Kind: selector.Name, Value: "uniqueIdentifier"},
	{Kind: selector.Id, Value: "cardNumber"},
	{Kind: selector.Name, Value: "cardNumber"},
	{Kind: selector.PlaceholderContains, Value: "identifier"},
	{Kind: selector.PlaceholderContains, Value: "card number"},
}

func (in CredentialInput) fields() []field {
	fields := []field{
		{key: "unique_identifier", locate: uniqueIdentifierChain, value: in.UniqueIdentifier, required: true},
		textField("reader_type", "readerType", in.ReaderType),
		textField("pin", "pin", in.Pin),
		textField("active_date", "activeDatePlaceholder", in.ActiveDate),
		textField("active_time", "activeTimePlaceholder", in.ActiveTime),
		textField("expiry_date", "expiryDatePlaceholder", in.ExpiryDate),
		textField("expiry_time", "expiryTimePlaceholder", in.ExpiryTime),
		textField("use_limit", "useLimit", in.UseLimit),
		textField("comments", "comments", in.Comments),
		textField("status", "status", in.Status),
	}
	if in.AccessControlled != nil {
		fields = append(fields, checkboxField(
			"access_control_lists", "accessControlListsIntegerArray1", *in.AccessControlled))
	}
	return fields
}

var credentialFormChain = selector.Chain{
	{Kind: selector.Css, Value: "#credentials form"},
	{Kind: selector.Css, Value: "form[action*=\"credential\"]"},
}

// AddCredential creates a credential on a visitor's record.
func (c *Client) AddCredential(ctx context.Context, uuid string, input CredentialInput) (SaveResult, error) {
	ctx, span := tracer.Start(ctx, "AddCredential")
	defer span.End()
	span.SetAttributes(attribute.String("uuid", uuid))

	return c.saveCredential(ctx, uuid, input)
}

// UpdateCredential edits the visitor's existing credential. Only the
// mutable fields are touched; the identifier stays as rendered unless a
// new one is given.
func (c *Client) UpdateCredential(ctx context.Context, uuid string, input CredentialInput) (SaveResult, error) {
	ctx, span := tracer.Start(ctx, "UpdateCredential")
	defer span.End()
	span.SetAttributes(attribute.String("uuid", uuid))

	return c.saveCredential(ctx, uuid, input)
}

func (c *Client) saveCredential(ctx context.Context, uuid string, input CredentialInput) (SaveResult, error) {
	if err := input.Validate(); err != nil {
		return SaveResult{}, err
	}

	page, err := c.editPage(ctx, uuid)
	if err != nil {
		return SaveResult{}, err
	}
	if err := requireTab(page, "credentials"); err != nil {
		return SaveResult{}, err
	}

	form, _, ok := credentialFormChain.Find(page.Doc.Selection)
	if !ok {
		return SaveResult{}, fmt.Errorf("no credential form on edit page")
	}

	overrides := url.Values{}
	if err := applyFields(form, input.fields(), overrides); err != nil {
		return SaveResult{}, err
	}

	result, _, err := c.saveForm(ctx, page, form, overrides)
	return result, err
}
