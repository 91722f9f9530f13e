package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if _, ok, err := st.Get(ctx, "scope-1", KeyToken); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	if err := st.Set(ctx, "scope-1", KeyToken, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := st.Get(ctx, "scope-1", KeyToken)
	if err != nil || !ok || value != "tok" {
		t.Fatalf("unexpected get: %q %v %v", value, ok, err)
	}
	if _, ok, _ := st.Get(ctx, "scope-2", KeyToken); ok {
		t.Fatalf("scopes must not share values")
	}

	if err := st.Delete(ctx, "scope-1", KeyToken, KeyRole); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := st.Get(ctx, "scope-1", KeyToken); ok {
		t.Fatalf("expected value removed")
	}
}

func TestMemoryStoreRejectsEmptyScope(t *testing.T) {
	st := NewMemoryStore()
	if err := st.Set(context.Background(), "", KeyToken, "x"); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

func TestMemoryStorePurge(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	_ = st.Set(ctx, "old", KeyToken, "a")
	_ = st.Set(ctx, "old", KeyRole, "agent")

	now = now.Add(2 * time.Hour)
	_ = st.Set(ctx, "fresh", KeyToken, "b")

	removed, err := st.Purge(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 values purged, got %d", removed)
	}
	if _, ok, _ := st.Get(ctx, "old", KeyToken); ok {
		t.Fatalf("old scope should be gone")
	}
	if _, ok, _ := st.Get(ctx, "fresh", KeyToken); !ok {
		t.Fatalf("fresh scope should survive")
	}
}
