// Package evtrack is an HTTP-level client for the EVTrack visitor
// management application. It signs in with a username/password form,
// scrapes list and edit pages with goquery, and submits the same form
// posts the web UI would.
package evtrack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"evtrack-backend/lib/browser"
	"evtrack-backend/lib/selector"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/evtrack")

const (
	loginPath  = "/login"
	listPath   = "/visitor/list"
	editPath   = "/visitor/edit"
	invitePath = "/visitor/invite"
	labelPath  = "/visitor/generate-visitor-label"
)

// ErrNotAuthenticated is returned when a page that requires a signed-in
// session redirects back to the login screen.
var ErrNotAuthenticated = fmt.Errorf("session is not authenticated")

// AuthenticationError carries the inline banner text shown by the login
// page, when one was found.
type AuthenticationError struct {
	Banner string
}

func (e AuthenticationError) Error() string {
	if e.Banner == "" {
		return "login failed"
	}
	return fmt.Sprintf("login failed: %s", e.Banner)
}

type Client struct {
	Session *browser.Session
}

type ClientOptions struct {
	BaseUrl string
	Timeout time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	session, err := browser.NewSession(browser.Options{
		BaseUrl:    opts.BaseUrl,
		Timeout:    opts.Timeout,
		TracerName: "scrapers/evtrack/http",
	})
	if err != nil {
		return nil, err
	}
	return &Client{Session: session}, nil
}

func (c *Client) Close() {
	c.Session.Close()
}

var usernameChain = selector.Chain{
	{Kind: selector.Css, Value: `input[name="username"]`},
	{Kind: selector.Css, Value: `input[type="email"]`},
	{Kind: selector.Css, Value: `form input[type="text"]`},
}

var passwordChain = selector.Chain{
	{Kind: selector.Css, Value: `input[name="password"]`},
	{Kind: selector.Css, Value: `input[type="password"]`},
}

var loginBannerChain = selector.Chain{
	{Kind: selector.Css, Value: ".alert"},
	{Kind: selector.Css, Value: ".error"},
	{Kind: selector.Css, Value: ".message"},
}

const loginAttempts = 3

func onLoginPage(page *browser.Page) bool {
	return strings.Contains(page.Url.Path, "login")
}

// Login signs in with the given credentials, retrying a fixed number of
// times before surfacing whatever error banner the login page shows.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	var banner string
	for attempt := 0; attempt < loginAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}

		page, err := c.Session.Navigate(ctx, loginPath)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch login page")
			return err
		}
		if !onLoginPage(page) {
			// already signed in
			return nil
		}

		usernameInput, _, ok := usernameChain.Find(page.Doc.Selection)
		if !ok {
			err := AuthenticationError{Banner: "no username field on login page"}
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		passwordInput, _, ok := passwordChain.Find(page.Doc.Selection)
		if !ok {
			err := AuthenticationError{Banner: "no password field on login page"}
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		form := usernameInput.Closest("form")
		overrides := map[string][]string{
			usernameInput.AttrOr("name", "username"): {username},
			passwordInput.AttrOr("name", "password"): {password},
		}

		landed, err := c.Session.SubmitForm(ctx, page, form, overrides)
		if err != nil {
			span.RecordError(err)
			continue
		}
		if !onLoginPage(landed) {
			return nil
		}
		if sel, _, ok := loginBannerChain.Find(landed.Doc.Selection); ok {
			banner = strings.TrimSpace(sel.Text())
		}
	}

	err := AuthenticationError{Banner: banner}
	span.SetStatus(codes.Error, err.Error())
	return err
}
