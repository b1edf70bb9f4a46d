// Package browser drives a remote web application over plain HTTP: a
// cookie-jar resty client plus goquery parsing stands in for a real
// browser, and every fixed sleep becomes a condition wait.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"evtrack-backend/lib/htmlutil"
	"evtrack-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// ErrSessionStart wraps any failure to provision the underlying HTTP
// client, so callers can map it to a configuration-class error.
var ErrSessionStart = fmt.Errorf("failed to start browsing session")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Parsing is refused above this size so an unexpected file download can
// never be slurped into a DOM.
const maxDocumentSize = 8 << 20

type Options struct {
	BaseUrl string
	// Timeout bounds each individual HTTP request. Zero means 30s.
	Timeout time.Duration
	// UserAgent overrides the fixed desktop user agent.
	UserAgent string
	// TracerName names the span source for outgoing requests.
	TracerName string
}

// Page is a fetched and parsed document together with the URL it ended up
// at after redirects.
type Page struct {
	Doc *goquery.Document
	Url *url.URL
}

// Session is a logged-in-or-not browsing context. One session per unit of
// work; callers release it with Close in a defer.
type Session struct {
	BaseUrl *url.URL
	Http    *resty.Client

	mu     sync.Mutex
	closed bool
}

func NewSession(opts Options) (*Session, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionStart, err)
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionStart, err)
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "browser/http"
	}
	telemetry.InstrumentResty(client, tracerName)

	return &Session{
		BaseUrl: baseUrl,
		Http:    client,
	}, nil
}

func parsePage(res *resty.Response) (*Page, error) {
	contentType := res.Header().Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		return nil, fmt.Errorf("expected an html page, got %q", contentType)
	}
	if len(res.Body()) > maxDocumentSize {
		return nil, fmt.Errorf("refusing to parse %d byte response as html", len(res.Body()))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, err
	}
	return &Page{
		Doc: doc,
		Url: res.RawResponse.Request.URL,
	}, nil
}

// Navigate fetches a path (or absolute URL) and parses the document,
// following same-domain redirects.
func (s *Session) Navigate(ctx context.Context, target string) (*Page, error) {
	res, err := s.Http.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, err
	}
	return parsePage(res)
}

// SubmitForm serializes the form's current values the way a browser
// would, applies overrides on top, and posts to the form's action
// (resolved against the page URL). Returns the resulting page.
func (s *Session) SubmitForm(ctx context.Context, page *Page, form *goquery.Selection, overrides url.Values) (*Page, error) {
	if form == nil || form.Length() == 0 {
		return nil, fmt.Errorf("cannot submit a missing form")
	}

	action, _ := form.Attr("action")
	target := page.Url
	if action != "" {
		actionUrl, err := url.Parse(action)
		if err != nil {
			return nil, fmt.Errorf("bad form action %q: %w", action, err)
		}
		target = page.Url.ResolveReference(actionUrl)
	}

	values := htmlutil.FormValues(form)
	for key, vals := range overrides {
		values.Del(key)
		for _, v := range vals {
			values.Add(key, v)
		}
	}

	res, err := s.Http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(values.Encode()).
		Post(target.String())
	if err != nil {
		return nil, err
	}
	return parsePage(res)
}

// FetchBinary downloads a non-HTML resource (a generated label, a photo)
// and returns its bytes and content type.
func (s *Session) FetchBinary(ctx context.Context, target string) ([]byte, string, error) {
	res, err := s.Http.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, "", err
	}
	if res.StatusCode() >= 400 {
		return nil, "", fmt.Errorf("fetch %s: status %d", target, res.StatusCode())
	}
	return res.Body(), res.Header().Get("Content-Type"), nil
}

// WaitFor polls pred until it reports done, the poll errors, or the
// context expires. It replaces fixed sleeps: the condition is checked
// immediately and then on every interval tick.
func (s *Session) WaitFor(ctx context.Context, interval time.Duration, pred func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = time.Millisecond * 250
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := pred(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("condition not met: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close releases the session. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.Http.GetClient().CloseIdleConnections()
}

// Closed reports whether Close has been called. Used by tests asserting
// teardown.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
