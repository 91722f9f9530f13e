package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/session"
)

var ErrInvalidUser = errors.New("token, identifier and a known role are required")

type User struct {
	Token      string
	Identifier string
	Role       models.Role
}

func (u User) IsAdmin() bool {
	return u.Role == models.RoleAdmin
}

// Listener receives the new user after every login/logout; ok is false once logged out.
type Listener func(user User, ok bool)

// Gate owns the current user of one browser session. Mutations are persisted
// first and then published to every subscriber before Login/Logout return.
// Listeners run synchronously and must not call Login or Logout.
type Gate struct {
	store session.Store
	scope string

	writeMu sync.Mutex

	mu        sync.RWMutex
	user      *User
	listeners map[int]Listener
	nextID    int
}

// NewGate rehydrates the user from the store. Any missing or unreadable
// field leaves the gate logged out.
func NewGate(ctx context.Context, store session.Store, scope string) *Gate {
	g := &Gate{store: store, scope: scope, listeners: make(map[int]Listener)}
	user, ok, err := g.load(ctx)
	if err != nil {
		log.Printf("session rehydrate scope=%s error=%v", scope, err)
	}
	if ok {
		g.user = &user
	}
	return g
}

func (g *Gate) load(ctx context.Context) (User, bool, error) {
	values := make(map[string]string, 3)
	for _, key := range []string{session.KeyToken, session.KeyIdentifier, session.KeyRole} {
		value, ok, err := g.store.Get(ctx, g.scope, key)
		if err != nil {
			return User{}, false, fmt.Errorf("read %s: %w", key, err)
		}
		if !ok || value == "" {
			return User{}, false, nil
		}
		values[key] = value
	}
	role, ok := models.ParseRole(values[session.KeyRole])
	if !ok {
		return User{}, false, nil
	}
	return User{Token: values[session.KeyToken], Identifier: values[session.KeyIdentifier], Role: role}, true, nil
}

// Refresh re-reads the persisted values and publishes when they differ from
// the in-memory user. It is how a gate notices a login or logout made by
// another process sharing the store. A read error keeps the current state.
func (g *Gate) Refresh(ctx context.Context) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	user, ok, err := g.load(ctx)
	if err != nil {
		log.Printf("session refresh scope=%s error=%v", g.scope, err)
		return err
	}
	current, had := g.Current()
	if ok == had && user == current {
		return nil
	}
	if ok {
		g.publish(&user)
	} else {
		g.publish(nil)
	}
	return nil
}

func (g *Gate) Scope() string {
	return g.scope
}

func (g *Gate) Login(ctx context.Context, token, identifier string, role models.Role) error {
	if token == "" || identifier == "" {
		return ErrInvalidUser
	}
	if _, ok := models.ParseRole(string(role)); !ok {
		return ErrInvalidUser
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	pairs := [][2]string{
		{session.KeyToken, token},
		{session.KeyIdentifier, identifier},
		{session.KeyRole, string(role)},
	}
	for _, pair := range pairs {
		if err := g.store.Set(ctx, g.scope, pair[0], pair[1]); err != nil {
			_ = g.store.Delete(ctx, g.scope, session.KeyToken, session.KeyIdentifier, session.KeyRole)
			return err
		}
	}

	user := User{Token: token, Identifier: identifier, Role: role}
	g.publish(&user)
	return nil
}

// Logout always clears the in-memory user, even when the store delete fails.
func (g *Gate) Logout(ctx context.Context) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	err := g.store.Delete(ctx, g.scope, session.KeyToken, session.KeyIdentifier, session.KeyRole)
	if err != nil {
		log.Printf("session clear scope=%s error=%v", g.scope, err)
	}
	g.publish(nil)
	return err
}

func (g *Gate) publish(user *User) {
	g.mu.Lock()
	g.user = user
	listeners := make([]Listener, 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()

	var current User
	if user != nil {
		current = *user
	}
	for _, fn := range listeners {
		fn(current, user != nil)
	}
}

func (g *Gate) Current() (User, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.user == nil {
		return User{}, false
	}
	return *g.user, true
}

func (g *Gate) IsAuthenticated() bool {
	_, ok := g.Current()
	return ok
}

func (g *Gate) Token() string {
	user, _ := g.Current()
	return user.Token
}

func (g *Gate) Subscribe(fn Listener) (cancel func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.listeners, id)
			g.mu.Unlock()
		})
	}
}

func (g *Gate) subscribed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.listeners) > 0
}
