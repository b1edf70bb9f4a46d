package evtrack

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"evtrack-backend/lib/browser"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// mockSite is a minimal EVTrack lookalike: a login form, a visitor list
// and an edit page with the tabbed sub-forms.
type mockSite struct {
	mu          sync.Mutex
	searchTerms []string
	savePosts   []url.Values
	password    string
	visitors    map[string]mockVisitor // keyed by search term, lowercased unless exactMatch
	exactMatch  bool
	loginBanner string
}

type mockVisitor struct {
	uuid, status, first, last, mobile string
}

func (m *mockSite) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.ParseForm()
			if r.PostForm.Get("password") == m.password {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
				return
			}
			fmt.Fprintf(w, `<html><body>
				<div class="alert">%s</div>
				<form action="/login"><input name="username"><input type="password" name="password"></form>
			</body></html>`, m.loginBanner)
			return
		}
		fmt.Fprint(w, `<html><body>
			<form action="/login"><input name="username"><input type="password" name="password"></form>
		</body></html>`)
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>welcome</body></html>`)
	})

	mux.HandleFunc("/visitor/list", func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("search")
		key := term
		if !m.exactMatch {
			key = strings.ToLower(term)
		}
		m.mu.Lock()
		m.searchTerms = append(m.searchTerms, term)
		visitor, found := m.visitors[key]
		m.mu.Unlock()

		if !found {
			fmt.Fprint(w, `<html><body><table id="listTable"><tbody>
				<tr><td colspan="4">No matching records found</td></tr>
			</tbody></table></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body><table id="listTable"><tbody>
			<tr>
				<td>%s</td><td>%s</td><td>%s</td><td>%s</td>
				<td><a href="/visitor/edit?uuid=%s">Edit</a></td>
			</tr>
		</tbody></table></body></html>`,
			visitor.status, visitor.first, visitor.last, visitor.mobile, visitor.uuid)
	})

	mux.HandleFunc("/visitor/edit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.ParseForm()
			m.mu.Lock()
			m.savePosts = append(m.savePosts, r.PostForm)
			m.mu.Unlock()
			http.Redirect(w, r, "/visitor/list", http.StatusFound)
			return
		}
		fmt.Fprint(w, `<html><body>
			<ul>
				<li><a href="#credentials">Credentials</a></li>
				<li><a href="#vehicles">Vehicles</a></li>
				<li><a href="#invite">Invite</a></li>
			</ul>
			<form id="visitorProfileForm" action="/visitor/edit">
				<input name="firstName" value="Jane">
				<input name="lastName" value="Doe">
				<input name="mobileNumberPlaceholder" placeholder="Mobile Number" value="555">
				<input type="checkbox" name="firstNations1" value="1">
				<select name="gender">
					<option value="">-</option>
					<option value="F">Female</option>
					<option value="M">Male</option>
				</select>
				<button type="submit" name="action" value="save">Save</button>
			</form>
			<div id="vehicles">
				<form action="/visitor/edit">
					<input name="vehicleRegistrationNumber">
					<input name="vehicleMake">
					<button type="submit" name="action" value="save">Save</button>
				</form>
			</div>
			<div id="credentials">
				<form action="/visitor/edit">
					<input name="uniqueIdentifier" id="uniqueIdentifier">
					<input name="readerType">
					<button type="submit" name="action" value="save">Save</button>
				</form>
			</div>
			<div id="invite">
				<form action="/visitor/edit">
					<input name="credentialReaderType">
					<input name="locationId">
					<input type="hidden" name="visitorUuid">
					<button type="submit" name="action" value="generate">Generate Invite</button>
				</form>
			</div>
		</body></html>`)
	})

	mux.HandleFunc("/visitor/generate-visitor-label", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	})

	return mux
}

func newTestClient(t *testing.T, site *mockSite) *Client {
	if site.password == "" {
		site.password = "hunter2"
	}
	if site.loginBanner == "" {
		site.loginBanner = "Invalid username or password"
	}
	server := httptest.NewServer(site.handler())
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestLoginSuccess(t *testing.T) {
	client := newTestClient(t, &mockSite{})
	err := client.Login(context.Background(), "admin", "hunter2")
	require.NoError(t, err)
}

func TestLoginFailureSurfacesBanner(t *testing.T) {
	client := newTestClient(t, &mockSite{})
	err := client.Login(context.Background(), "admin", "wrong")

	var authErr AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, authErr.Banner, "Invalid username or password")
}

func TestSearchVisitorsFindsRow(t *testing.T) {
	site := &mockSite{visitors: map[string]mockVisitor{
		"jane doe": {uuid: "abc-123", status: "Active", first: "Jane", last: "Doe", mobile: "555"},
	}}
	client := newTestClient(t, site)

	result, err := client.SearchVisitors(context.Background(), "Jane Doe")
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, "abc-123", result.Visitor.Uuid)
	require.Equal(t, "Jane", result.Visitor.FirstName)
	require.Equal(t, "Doe", result.Visitor.LastName)
	require.Equal(t, "Active", result.Visitor.Status)
	require.Equal(t, "555", result.Visitor.Mobile)
}

func TestSearchPlaceholderRowIsNotFoundNotError(t *testing.T) {
	client := newTestClient(t, &mockSite{})

	result, err := client.SearchVisitors(context.Background(), "Nobody")
	require.NoError(t, err)
	require.False(t, result.Found)
}

func TestRelaxedSearchTriesVariantsInOrder(t *testing.T) {
	// nothing matches, so every variant should be attempted
	site := &mockSite{visitors: map[string]mockVisitor{}}
	client := newTestClient(t, site)

	_, err := client.SearchVisitorsRelaxed(context.Background(), "JANE DOE")
	require.NoError(t, err)

	site.mu.Lock()
	terms := append([]string(nil), site.searchTerms...)
	site.mu.Unlock()
	require.Equal(t, []string{"JANE DOE", "jane doe", "Jane Doe", "JANE", "DOE"}, terms)
}

func TestRelaxedSearchSucceedsOnLaterVariant(t *testing.T) {
	// the record is only reachable by the upper-cased term, so exact,
	// lowercase and title case all miss before the hit
	site := &mockSite{exactMatch: true, visitors: map[string]mockVisitor{
		"JANE DOE": {uuid: "abc-123", status: "Active", first: "Jane", last: "Doe", mobile: "555"},
	}}
	client := newTestClient(t, site)

	result, err := client.SearchVisitorsRelaxed(context.Background(), "jane doe")
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, "abc-123", result.Visitor.Uuid)

	site.mu.Lock()
	terms := append([]string(nil), site.searchTerms...)
	site.mu.Unlock()
	require.Equal(t, []string{"jane doe", "Jane Doe", "JANE DOE"}, terms)
}

func TestRelaxedSearchVerifiesTokenMatch(t *testing.T) {
	// a token search that returns somebody else's row must be rejected
	site := &mockSite{visitors: map[string]mockVisitor{
		"jane": {uuid: "zzz-999", status: "Active", first: "John", last: "Smith"},
	}}
	client := newTestClient(t, site)

	result, err := client.SearchVisitorsRelaxed(context.Background(), "Jane Doe")
	require.NoError(t, err)
	require.False(t, result.Found)
}

func TestUpdateVisitorPostsFields(t *testing.T) {
	site := &mockSite{}
	client := newTestClient(t, site)

	result, err := client.UpdateVisitor(context.Background(), "abc-123", VisitorInput{
		FirstName: "Joan",
		Mobile:    "0821234567",
		Gender:    "Female",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeSaved, result.Outcome)

	require.Len(t, site.savePosts, 1)
	post := site.savePosts[0]
	require.Equal(t, "Joan", post.Get("firstName"))
	require.Equal(t, "Doe", post.Get("lastName")) // untouched fields survive
	require.Equal(t, "0821234567", post.Get("mobileNumberPlaceholder"))
	require.Equal(t, "F", post.Get("gender")) // nearest text match
	require.Equal(t, "save", post.Get("action"))
}

func TestAddCredentialWithoutIdentifierAbortsBeforePost(t *testing.T) {
	site := &mockSite{}
	client := newTestClient(t, site)

	_, err := client.AddCredential(context.Background(), "abc-123", CredentialInput{
		ReaderType: "RFID",
	})
	require.Error(t, err)
	require.Empty(t, site.savePosts)
}

func TestAddVehicleRequiresVinOrPlate(t *testing.T) {
	site := &mockSite{}
	client := newTestClient(t, site)

	_, err := client.AddVehicle(context.Background(), "abc-123", VehicleInput{Make: "Toyota"})
	require.Error(t, err)
	require.Empty(t, site.savePosts)

	result, err := client.AddVehicle(context.Background(), "abc-123", VehicleInput{
		NumberPlate: "CA 123-456",
		Make:        "Toyota",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSaved, result.Outcome)
	require.Len(t, site.savePosts, 1)
	require.Equal(t, "CA 123-456", site.savePosts[0].Get("vehicleRegistrationNumber"))
}

func TestInvitePostsDefaultsAndUuid(t *testing.T) {
	site := &mockSite{}
	client := newTestClient(t, site)

	result, err := client.Invite(context.Background(), "abc-123", InviteInput{
		Location: "Main Gate",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeSaved, result.Outcome)

	require.Len(t, site.savePosts, 1)
	post := site.savePosts[0]
	require.Equal(t, "QR_CODE", post.Get("credentialReaderType"))
	require.Equal(t, "647", post.Get("visitReasonId"))
	require.Equal(t, "Main Gate", post.Get("locationId"))
	require.Equal(t, "abc-123", post.Get("visitorUuid"))
	require.Equal(t, "generate", post.Get("action"))
}

func TestInviteRequiresLocation(t *testing.T) {
	site := &mockSite{}
	client := newTestClient(t, site)

	_, err := client.Invite(context.Background(), "abc-123", InviteInput{})
	require.Error(t, err)
	require.Empty(t, site.savePosts)
}

func TestVisitorProfileScrapesFormState(t *testing.T) {
	client := newTestClient(t, &mockSite{})

	profile, err := client.VisitorProfile(context.Background(), "abc-123")
	require.NoError(t, err)

	want := Profile{
		Uuid:      "abc-123",
		FirstName: "Jane",
		LastName:  "Doe",
		Mobile:    "555",
	}
	require.Empty(t, cmp.Diff(want, profile))
}

func TestBadgeFetchesBinary(t *testing.T) {
	client := newTestClient(t, &mockSite{})

	data, contentType, err := client.Badge(context.Background(), "abc-123")
	require.NoError(t, err)
	require.Equal(t, "image/png", contentType)
	require.Equal(t, []byte("png-bytes"), data)
}

func TestEditPageBehindLoginIsAuthError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/visitor/edit", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form><input name="username"></form></body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	_, err = client.VisitorProfile(context.Background(), "abc-123")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestClassifySaveOutcomes(t *testing.T) {
	page := func(path, body string) *browser.Page {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		require.NoError(t, err)
		return &browser.Page{Doc: doc, Url: &url.URL{Path: path}}
	}

	saved := classifySave(page("/visitor/list", `<html><body>ok</body></html>`))
	require.Equal(t, OutcomeSaved, saved.Outcome)

	failed := classifySave(page("/visitor/edit",
		`<html><body><div class="alert-danger">First name is required</div></body></html>`))
	require.Equal(t, OutcomeValidationFailed, failed.Outcome)
	require.Contains(t, failed.Message, "First name is required")

	unclear := classifySave(page("/somewhere-else", `<html><body>hmm</body></html>`))
	require.Equal(t, OutcomeUnclear, unclear.Outcome)
}
