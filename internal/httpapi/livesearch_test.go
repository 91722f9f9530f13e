package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/apiclient"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/auth"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/importer"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/search"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/session"
)

type fakeLiveConn struct {
	req  *http.Request
	in   chan string
	sent chan liveMessage
	done chan struct{}

	once   sync.Once
	mu     sync.Mutex
	status uint32
}

func newFakeLiveConn(req *http.Request) *fakeLiveConn {
	return &fakeLiveConn{
		req:  req,
		in:   make(chan string, 8),
		sent: make(chan liveMessage, 64),
		done: make(chan struct{}),
	}
}

func (c *fakeLiveConn) Request() *http.Request { return c.req }

func (c *fakeLiveConn) Recv() (string, error) {
	select {
	case msg, ok := <-c.in:
		if !ok {
			return "", errors.New("session closed")
		}
		return msg, nil
	case <-c.done:
		return "", errors.New("session closed")
	}
}

func (c *fakeLiveConn) Send(payload string) error {
	var msg liveMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return err
	}
	c.sent <- msg
	return nil
}

func (c *fakeLiveConn) Close(status uint32, reason string) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.status = status
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

func (c *fakeLiveConn) closedWith() (uint32, bool) {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.status, true
	default:
		return 0, false
	}
}

func (c *fakeLiveConn) command(t *testing.T, cmd liveCommand) {
	t.Helper()
	raw, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("encode command: %v", err)
	}
	c.in <- string(raw)
}

// until collects sent messages up to and including the first one matching.
func (c *fakeLiveConn) until(t *testing.T, match func(liveMessage) bool) []liveMessage {
	t.Helper()
	var seen []liveMessage
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.sent:
			seen = append(seen, msg)
			if match(msg) {
				return seen
			}
		case <-timeout:
			t.Fatalf("timed out, messages so far %+v", seen)
		}
	}
}

func isRedirect(msg liveMessage) bool { return msg.Type == "redirect" }

func isSettled(msg liveMessage) bool {
	return msg.Type == "state" && msg.State != nil && msg.State.State == search.StateResults
}

type liveFixture struct {
	handler  *Handler
	registry *auth.Registry
	gate     *auth.Gate
}

func newLiveFixture(t *testing.T, api API, loggedIn bool) *liveFixture {
	t.Helper()
	registry := auth.NewRegistry(session.NewMemoryStore())
	h := NewHandler(Options{
		Registry:        registry,
		API:             api,
		Tracker:         importer.NewTracker(),
		Cookies:         NewCookieCodec("test-secret", false, 0),
		SearchDebounce:  5 * time.Millisecond,
		SearchMinLength: 3,
	})
	gate := registry.Gate(context.Background(), "0f8fad5b-d9cb-469f-a165-70867728950e")
	if loggedIn {
		if err := gate.Login(context.Background(), apiclient.MockToken, "agent@example.com", models.RoleAgent); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	return &liveFixture{handler: h, registry: registry, gate: gate}
}

// open serves one live connection and returns a channel closed when it ends.
func (f *liveFixture) open(conn *fakeLiveConn) <-chan struct{} {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		f.handler.serveLiveSearch(conn)
	}()
	return finished
}

func (f *liveFixture) request() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/agent/live/000/abc/xhr_streaming", nil)
	return req.WithContext(auth.WithGate(req.Context(), f.gate))
}

func waitFinished(t *testing.T, finished <-chan struct{}) {
	t.Helper()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("live connection did not end")
	}
}

func remoteAPI(t *testing.T, status int) *stubAPI {
	t.Helper()
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(remote.Close)
	return &stubAPI{Client: apiclient.New(apiclient.Options{BaseURL: remote.URL, OnUnauthorized: auth.LogoutFromContext})}
}

func TestLiveSearchRejectsAnonymous(t *testing.T) {
	cases := []struct {
		name string
		req  func(f *liveFixture) *http.Request
	}{
		{name: "no session", req: func(*liveFixture) *http.Request {
			return httptest.NewRequest(http.MethodGet, "/agent/live/000/abc/xhr_streaming", nil)
		}},
		{name: "logged out gate", req: func(f *liveFixture) *http.Request { return f.request() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLiveFixture(t, newMockAPI(), false)
			conn := newFakeLiveConn(tc.req(f))
			waitFinished(t, f.open(conn))

			msgs := conn.until(t, isRedirect)
			if len(msgs) != 1 || !strings.Contains(msgs[0].Location, "notice=session_expired") {
				t.Fatalf("expected a single expired redirect, got %+v", msgs)
			}
			if status, closed := conn.closedWith(); !closed || status != 4001 {
				t.Fatalf("expected close 4001, got %d %v", status, closed)
			}
		})
	}
}

func TestLiveSearchStreamsResults(t *testing.T) {
	f := newLiveFixture(t, newMockAPI(), true)
	conn := newFakeLiveConn(f.request())
	finished := f.open(conn)

	initial := conn.until(t, func(msg liveMessage) bool { return msg.Type == "state" })
	if initial[0].State.State != search.StateIdle {
		t.Fatalf("expected idle initial state, got %+v", initial[0].State)
	}

	conn.command(t, liveCommand{Action: "mode", By: "name"})
	conn.command(t, liveCommand{Action: "query", Query: "Jane"})
	msgs := conn.until(t, isSettled)
	rows := msgs[len(msgs)-1].State.Rows
	if rows.Mode != models.SearchByName || len(rows.Customers) != 1 || rows.Customers[0].FullName != "Jane Smith" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	close(conn.in)
	waitFinished(t, finished)
}

func TestLiveSearchFailureNoticeFollowsState(t *testing.T) {
	f := newLiveFixture(t, remoteAPI(t, http.StatusServiceUnavailable), true)
	conn := newFakeLiveConn(f.request())
	finished := f.open(conn)

	conn.command(t, liveCommand{Action: "mode", By: "name"})
	conn.command(t, liveCommand{Action: "query", Query: "Jane"})
	msgs := conn.until(t, func(msg liveMessage) bool { return msg.Type == "notice" })
	if len(msgs) < 2 || !isSettled(msgs[len(msgs)-2]) {
		t.Fatalf("expected the settled state right before the notice, got %+v", msgs)
	}
	n := msgs[len(msgs)-1].Notice
	if n == nil || n.Title != "Search failed" || !n.Destructive {
		t.Fatalf("unexpected notice %+v", n)
	}

	close(conn.in)
	waitFinished(t, finished)
}

func TestLiveSearchUnauthorizedRedirects(t *testing.T) {
	f := newLiveFixture(t, remoteAPI(t, http.StatusUnauthorized), true)
	conn := newFakeLiveConn(f.request())
	finished := f.open(conn)

	conn.command(t, liveCommand{Action: "query", Query: "POL001"})
	conn.until(t, isRedirect)
	waitFinished(t, finished)

	if status, closed := conn.closedWith(); !closed || status != 4001 {
		t.Fatalf("expected close 4001 after 401, got %d %v", status, closed)
	}
	if f.gate.IsAuthenticated() {
		t.Fatalf("a 401 during live search must log the session out")
	}
}

func TestLiveSearchClosesOnLogout(t *testing.T) {
	f := newLiveFixture(t, newMockAPI(), true)
	conn := newFakeLiveConn(f.request())
	finished := f.open(conn)
	conn.until(t, func(msg liveMessage) bool { return msg.Type == "state" })

	if err := f.gate.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	msgs := conn.until(t, isRedirect)
	if !strings.HasPrefix(msgs[len(msgs)-1].Location, loginPath) {
		t.Fatalf("unexpected redirect %+v", msgs[len(msgs)-1])
	}
	waitFinished(t, finished)
	if status, _ := conn.closedWith(); status != 4001 {
		t.Fatalf("expected close 4001, got %d", status)
	}
}

func TestLiveSearchEndStopsPendingSearch(t *testing.T) {
	api := newMockAPI()
	f := newLiveFixture(t, api, true)
	f.handler.searchDebounce = 50 * time.Millisecond
	conn := newFakeLiveConn(f.request())
	finished := f.open(conn)
	conn.until(t, func(msg liveMessage) bool { return msg.Type == "state" })

	conn.command(t, liveCommand{Action: "query", Query: "Jane Smith"})
	close(conn.in)
	waitFinished(t, finished)

	time.Sleep(100 * time.Millisecond)
	if calls := api.searches.Load(); calls != 0 {
		t.Fatalf("a search fired after the connection ended, calls=%d", calls)
	}
}
