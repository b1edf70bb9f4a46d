package automation

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"evtrack-backend/lib/runlog"
	"evtrack-backend/lib/scrapers/evtrack"

	"github.com/stretchr/testify/require"
)

// siteHandler is a minimal EVTrack lookalike with one known visitor.
func siteHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
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
		if r.URL.Query().Get("search") != "Jane Doe" {
			fmt.Fprint(w, `<html><body><table id="listTable"><tbody>
				<tr><td colspan="4">No matching records found</td></tr>
			</tbody></table></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><table id="listTable"><tbody>
			<tr>
				<td>Active</td><td>Jane</td><td>Doe</td><td>555</td>
				<td><a href="/visitor/edit?uuid=abc-123">Edit</a></td>
			</tr>
		</tbody></table></body></html>`)
	})
	mux.HandleFunc("/visitor/edit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Redirect(w, r, "/visitor/list", http.StatusFound)
			return
		}
		fmt.Fprint(w, `<html><body>
			<a href="#vehicles">Vehicles</a>
			<form id="visitorProfileForm" action="/visitor/edit">
				<input name="firstName" value="Jane">
				<input name="lastName" value="Doe">
				<button type="submit" name="action" value="save">Save</button>
			</form>
			<div id="vehicles">
				<form action="/visitor/edit">
					<input name="vehicleRegistrationNumber">
					<button type="submit" name="action" value="save">Save</button>
				</form>
			</div>
		</body></html>`)
	})
	return mux
}

type fixture struct {
	service  *Service
	runs     runlog.Store
	sessions []*evtrack.Client
	starts   int
}

func newFixture(t *testing.T) *fixture {
	server := httptest.NewServer(siteHandler())
	t.Cleanup(server.Close)

	sqlite, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	runs := runlog.NewStore(sqlite)
	require.NoError(t, runs.Init(context.Background()))

	f := &fixture{runs: runs}
	f.service = NewService(Config{
		BaseUrl:  server.URL,
		Username: "admin",
		Password: "hunter2",
	}, runs)

	inner := f.service.newClient
	f.service.newClient = func() (*evtrack.Client, error) {
		f.starts++
		client, err := inner()
		if client != nil {
			f.sessions = append(f.sessions, client)
		}
		return client, err
	}
	return f
}

func (f *fixture) requireAllSessionsClosed(t *testing.T) {
	require.NotEmpty(t, f.sessions)
	for _, client := range f.sessions {
		require.True(t, client.Session.Closed())
	}
}

func TestUpdateVisitorClosesSessionOnSuccess(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.service.UpdateVisitor(context.Background(), "Jane Doe",
		evtrack.VisitorInput{FirstName: "Joan"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "saved", outcome.Outcome)
	require.Equal(t, "abc-123", outcome.Uuid)
	f.requireAllSessionsClosed(t)
}

func TestUpdateVisitorClosesSessionOnNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.UpdateVisitor(context.Background(), "Nobody Here",
		evtrack.VisitorInput{FirstName: "Joan"}, nil, nil)
	require.ErrorIs(t, err, ErrVisitorNotFound)
	f.requireAllSessionsClosed(t)

	entries, err := f.runs.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "update-visitor", entries[0].Workflow)
	require.Equal(t, "not-found", entries[0].Outcome)
}

func TestAddVehicleValidatesBeforeAnySession(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.AddVehicle(context.Background(), "Jane Doe",
		evtrack.VehicleInput{Make: "Toyota"}, nil)

	var inputErr InputError
	require.ErrorAs(t, err, &inputErr)
	require.Zero(t, f.starts)
}

func TestEmptySearchTermIsInputError(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.FindVisitor(context.Background(), "", nil)
	var inputErr InputError
	require.ErrorAs(t, err, &inputErr)
	require.Zero(t, f.starts)

	_, err = f.service.GetProfile(context.Background(), "", nil)
	require.ErrorAs(t, err, &inputErr)
	require.Zero(t, f.starts)

	_, _, err = f.service.GetBadge(context.Background(), "", nil)
	require.ErrorAs(t, err, &inputErr)
	require.Zero(t, f.starts)
}

func TestProgressReportsReachCompletion(t *testing.T) {
	f := newFixture(t)

	var reports []Progress
	_, err := f.service.FindVisitor(context.Background(), "Jane Doe",
		func(p Progress) { reports = append(reports, p) })
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	last := 0
	for _, p := range reports {
		require.GreaterOrEqual(t, p.Percent, last)
		last = p.Percent
	}
	require.Equal(t, 100, last)
}

func TestNilProgressFuncIsNoOp(t *testing.T) {
	f := newFixture(t)

	visitor, err := f.service.FindVisitor(context.Background(), "Jane Doe", nil)
	require.NoError(t, err)
	require.Equal(t, "abc-123", visitor.Uuid)
}

func TestCheckLogin(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.service.CheckLogin(context.Background()))
	f.requireAllSessionsClosed(t)
}
