package session

import (
	"context"
	"errors"
	"time"
)

// Persisted keys of one browser session.
const (
	KeyToken      = "auth_token"
	KeyIdentifier = "auth_email"
	KeyRole       = "auth_role"
)

var ErrInvalidScope = errors.New("invalid session scope")

// Store is scoped key/value storage. A scope is one browser session.
type Store interface {
	Get(ctx context.Context, scope, key string) (string, bool, error)
	Set(ctx context.Context, scope, key, value string) error
	Delete(ctx context.Context, scope string, keys ...string) error
	// Purge removes every value of scopes not written since before.
	Purge(ctx context.Context, before time.Time) (int64, error)
}
