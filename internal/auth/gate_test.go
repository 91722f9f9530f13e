package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/session"
)

type fakeStore struct {
	getFn    func(ctx context.Context, scope, key string) (string, bool, error)
	setFn    func(ctx context.Context, scope, key, value string) error
	deleteFn func(ctx context.Context, scope string, keys ...string) error
}

func (f fakeStore) Get(ctx context.Context, scope, key string) (string, bool, error) {
	if f.getFn == nil {
		return "", false, nil
	}
	return f.getFn(ctx, scope, key)
}

func (f fakeStore) Set(ctx context.Context, scope, key, value string) error {
	if f.setFn == nil {
		return nil
	}
	return f.setFn(ctx, scope, key, value)
}

func (f fakeStore) Delete(ctx context.Context, scope string, keys ...string) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, scope, keys...)
}

func (f fakeStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func TestLoginThenCurrent(t *testing.T) {
	ctx := context.Background()
	st := session.NewMemoryStore()
	gate := NewGate(ctx, st, "scope-1")
	if gate.IsAuthenticated() {
		t.Fatalf("fresh gate must be logged out")
	}

	if err := gate.Login(ctx, "tok", "agent@example.com", models.RoleAgent); err != nil {
		t.Fatalf("login: %v", err)
	}
	user, ok := gate.Current()
	if !ok {
		t.Fatalf("expected user after login")
	}
	want := User{Token: "tok", Identifier: "agent@example.com", Role: models.RoleAgent}
	if user != want {
		t.Fatalf("expected %+v, got %+v", want, user)
	}
	for key, expected := range map[string]string{
		session.KeyToken:      "tok",
		session.KeyIdentifier: "agent@example.com",
		session.KeyRole:       "agent",
	} {
		value, ok, _ := st.Get(ctx, "scope-1", key)
		if !ok || value != expected {
			t.Fatalf("persisted %s=%q, want %q", key, value, expected)
		}
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	st := session.NewMemoryStore()
	gate := NewGate(ctx, st, "scope-1")
	_ = gate.Login(ctx, "tok", "admin@example.com", models.RoleAdmin)

	if err := gate.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if gate.IsAuthenticated() || gate.Token() != "" {
		t.Fatalf("expected logged out gate")
	}
	for _, key := range []string{session.KeyToken, session.KeyIdentifier, session.KeyRole} {
		if _, ok, _ := st.Get(ctx, "scope-1", key); ok {
			t.Fatalf("expected %s cleared", key)
		}
	}

	// logging out twice is harmless
	if err := gate.Logout(ctx); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestLogoutClearsMemoryWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	st := fakeStore{
		deleteFn: func(ctx context.Context, scope string, keys ...string) error {
			return errors.New("store down")
		},
	}
	gate := NewGate(ctx, st, "scope-1")
	_ = gate.Login(ctx, "tok", "a@example.com", models.RoleAgent)
	if err := gate.Logout(ctx); err == nil {
		t.Fatalf("expected store error to be returned")
	}
	if gate.IsAuthenticated() {
		t.Fatalf("in-memory user must be cleared regardless")
	}
}

func TestLoginRejectsInvalidInput(t *testing.T) {
	gate := NewGate(context.Background(), session.NewMemoryStore(), "scope-1")
	cases := []struct {
		name       string
		token      string
		identifier string
		role       models.Role
	}{
		{"missing token", "", "a@example.com", models.RoleAgent},
		{"missing identifier", "tok", "", models.RoleAgent},
		{"unknown role", "tok", "a@example.com", models.Role("owner")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := gate.Login(context.Background(), tc.token, tc.identifier, tc.role); !errors.Is(err, ErrInvalidUser) {
				t.Fatalf("expected ErrInvalidUser, got %v", err)
			}
			if gate.IsAuthenticated() {
				t.Fatalf("gate must stay logged out")
			}
		})
	}
}

func TestRehydrate(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]string
		want   bool
	}{
		{"all present", map[string]string{session.KeyToken: "t", session.KeyIdentifier: "e", session.KeyRole: "admin"}, true},
		{"missing role", map[string]string{session.KeyToken: "t", session.KeyIdentifier: "e"}, false},
		{"missing token", map[string]string{session.KeyIdentifier: "e", session.KeyRole: "agent"}, false},
		{"unknown role", map[string]string{session.KeyToken: "t", session.KeyIdentifier: "e", session.KeyRole: "root"}, false},
		{"empty", map[string]string{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			st := session.NewMemoryStore()
			for key, value := range tc.values {
				_ = st.Set(ctx, "scope", key, value)
			}
			gate := NewGate(ctx, st, "scope")
			if got := gate.IsAuthenticated(); got != tc.want {
				t.Fatalf("expected authenticated=%v, got %v", tc.want, got)
			}
		})
	}
}

func TestRehydrateStoreErrorIsLoggedOut(t *testing.T) {
	st := fakeStore{
		getFn: func(ctx context.Context, scope, key string) (string, bool, error) {
			return "", false, errors.New("boom")
		},
	}
	gate := NewGate(context.Background(), st, "scope")
	if gate.IsAuthenticated() {
		t.Fatalf("read failure must leave gate logged out")
	}
}

func TestSubscribersSeeEveryChange(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(ctx, session.NewMemoryStore(), "scope")

	var events []bool
	cancel := gate.Subscribe(func(user User, ok bool) {
		events = append(events, ok)
		if ok && user.Token != "tok" {
			t.Errorf("listener saw wrong token %q", user.Token)
		}
	})
	_ = gate.Login(ctx, "tok", "e", models.RoleAgent)
	_ = gate.Logout(ctx)
	cancel()
	_ = gate.Login(ctx, "tok", "e", models.RoleAgent)

	if len(events) != 2 || !events[0] || events[1] {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestRegistrySharesGatePerScope(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(session.NewMemoryStore())
	a := reg.Gate(ctx, "scope-a")
	if reg.Gate(ctx, "scope-a") != a {
		t.Fatalf("expected the same gate for one scope")
	}
	if reg.Gate(ctx, "scope-b") == a {
		t.Fatalf("scopes must not share gates")
	}

	_ = a.Login(ctx, "tok", "e", models.RoleAgent)
	if !reg.Gate(ctx, "scope-a").IsAuthenticated() {
		t.Fatalf("login must be visible through the registry immediately")
	}
}

func TestRegistrySweep(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(session.NewMemoryStore())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	idle := reg.Gate(ctx, "idle")
	watched := reg.Gate(ctx, "watched")
	cancel := watched.Subscribe(func(User, bool) {})
	defer cancel()
	_ = idle

	now = now.Add(time.Hour)
	reg.Gate(ctx, "fresh")

	removed := reg.Sweep(now.Add(-time.Minute))
	if removed != 1 {
		t.Fatalf("expected one gate swept, got %d", removed)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected watched and fresh gates to remain, got %d", reg.Len())
	}
}

func TestLogoutFromContext(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(ctx, session.NewMemoryStore(), "scope")
	_ = gate.Login(ctx, "tok", "e", models.RoleAgent)

	LogoutFromContext(ctx)
	if !gate.IsAuthenticated() {
		t.Fatalf("context without gate must not touch anything")
	}

	LogoutFromContext(WithGate(ctx, gate))
	if gate.IsAuthenticated() {
		t.Fatalf("expected gate logged out via context")
	}
}

func TestSharedRegistrySeesOtherInstances(t *testing.T) {
	ctx := context.Background()
	st := session.NewMemoryStore()
	first := NewSharedRegistry(st)
	second := NewSharedRegistry(st)

	gateA := first.Gate(ctx, "scope")
	gateB := second.Gate(ctx, "scope")
	var events []bool
	cancel := gateB.Subscribe(func(_ User, ok bool) { events = append(events, ok) })
	defer cancel()

	if err := gateA.Login(ctx, "tok", "agent@example.com", models.RoleAgent); err != nil {
		t.Fatalf("login: %v", err)
	}
	user, ok := second.Gate(ctx, "scope").Current()
	if !ok || user.Token != "tok" {
		t.Fatalf("login on one instance must be visible on the other, got %+v %v", user, ok)
	}

	if err := gateA.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	again := second.Gate(ctx, "scope")
	if again.IsAuthenticated() || again.Token() != "" {
		t.Fatalf("logout on one instance must be visible on the other")
	}
	if len(events) != 2 || !events[0] || events[1] {
		t.Fatalf("expected login then logout to reach subscribers, got %v", events)
	}
}

func TestRefreshKeepsStateOnReadError(t *testing.T) {
	ctx := context.Background()
	st := session.NewMemoryStore()
	failing := false
	store := fakeStore{
		getFn: func(ctx context.Context, scope, key string) (string, bool, error) {
			if failing {
				return "", false, errors.New("db down")
			}
			return st.Get(ctx, scope, key)
		},
		setFn: st.Set,
	}
	gate := NewGate(ctx, store, "scope")
	_ = gate.Login(ctx, "tok", "agent@example.com", models.RoleAgent)

	failing = true
	if err := gate.Refresh(ctx); err == nil {
		t.Fatalf("expected read error from refresh")
	}
	if !gate.IsAuthenticated() {
		t.Fatalf("a failed refresh must not log the user out")
	}
}

func TestRegistryBuildsGatesOutsideLock(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	reg := NewRegistry(fakeStore{
		getFn: func(ctx context.Context, scope, key string) (string, bool, error) {
			if scope == "slow" {
				once.Do(func() { close(entered) })
				<-release
			}
			return "", false, nil
		},
	})

	slow := make(chan *Gate, 1)
	go func() { slow <- reg.Gate(ctx, "slow") }()
	<-entered

	fast := make(chan *Gate, 1)
	go func() { fast <- reg.Gate(ctx, "fast") }()
	select {
	case <-fast:
	case <-time.After(time.Second):
		t.Fatalf("a slow rehydrate must not block other scopes")
	}

	close(release)
	gate := <-slow
	if reg.Gate(ctx, "slow") != gate {
		t.Fatalf("expected the rehydrated gate to be kept")
	}
}
