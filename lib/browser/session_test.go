package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, handler http.Handler) (*Session, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	session, err := NewSession(Options{BaseUrl: server.URL})
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session, server
}

func TestNavigateFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/landed", http.StatusFound)
	})
	mux.HandleFunc("/landed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>landed</h1></body></html>`)
	})
	session, _ := newTestSession(t, mux)

	page, err := session.Navigate(context.Background(), "/start")
	require.NoError(t, err)
	require.Equal(t, "/landed", page.Url.Path)
	require.Equal(t, "landed", page.Doc.Find("h1").Text())
}

func TestNavigateRefusesBinary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/file", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	})
	session, _ := newTestSession(t, mux)

	_, err := session.Navigate(context.Background(), "/file")
	require.Error(t, err)

	body, contentType, err := session.FetchBinary(context.Background(), "/file")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", contentType)
	require.Equal(t, []byte("%PDF-1.4"), body)
}

func TestSubmitFormPostsValuesWithOverrides(t *testing.T) {
	var posted atomic.Pointer[map[string][]string]

	mux := http.NewServeMux()
	mux.HandleFunc("/edit", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `<html><body>
				<form id="f" action="/edit">
					<input name="firstName" value="Jane">
					<input type="hidden" name="uuid" value="abc">
				</form>
			</body></html>`)
		case http.MethodPost:
			require.NoError(t, r.ParseForm())
			form := map[string][]string(r.PostForm)
			posted.Store(&form)
			fmt.Fprint(w, `<html><body>saved</body></html>`)
		}
	})
	session, _ := newTestSession(t, mux)

	page, err := session.Navigate(context.Background(), "/edit")
	require.NoError(t, err)

	_, err = session.SubmitForm(context.Background(), page, page.Doc.Find("form#f"),
		map[string][]string{
			"firstName": {"Joan"},
			"action":    {"save"},
		})
	require.NoError(t, err)

	got := *posted.Load()
	require.Equal(t, []string{"Joan"}, got["firstName"])
	require.Equal(t, []string{"abc"}, got["uuid"])
	require.Equal(t, []string{"save"}, got["action"])
}

func TestWaitForPollsUntilDone(t *testing.T) {
	var calls int
	err := (&Session{}).WaitFor(context.Background(), time.Millisecond,
		func(ctx context.Context) (bool, error) {
			calls++
			return calls >= 3, nil
		})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWaitForHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*20)
	defer cancel()

	err := (&Session{}).WaitFor(ctx, time.Millisecond*5,
		func(ctx context.Context) (bool, error) { return false, nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseIsIdempotent(t *testing.T) {
	session, _ := newTestSession(t, http.NewServeMux())
	require.False(t, session.Closed())
	session.Close()
	session.Close()
	require.True(t, session.Closed())
}
