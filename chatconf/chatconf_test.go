package chatconf

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := s.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	return s
}

func TestNewStoreEmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := NewStore("  "); err == nil {
		t.Fatalf("NewStore(blank) error = nil, want error")
	}
}

func TestGetUnknownChat(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, found, err := s.Get(42)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Fatalf("Get() found = true, want false for unknown chat")
	}
}

func TestSetLocalModeRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetLocalMode(ctx, 42, true); err != nil {
		t.Fatalf("SetLocalMode() error = %v", err)
	}
	settings, found, err := s.Get(42)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatalf("Get() found = false, want true")
	}
	if !settings.LocalMode {
		t.Fatalf("Get() local_mode = false, want true")
	}

	if err := s.SetLocalMode(ctx, 42, false); err != nil {
		t.Fatalf("SetLocalMode() error = %v", err)
	}
	settings, _, err = s.Get(42)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if settings.LocalMode {
		t.Fatalf("Get() local_mode = true after disable, want false")
	}
}

func TestSetLocalModeIsolatesChats(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetLocalMode(ctx, 1, true); err != nil {
		t.Fatalf("SetLocalMode(1) error = %v", err)
	}
	if err := s.SetLocalMode(ctx, 2, false); err != nil {
		t.Fatalf("SetLocalMode(2) error = %v", err)
	}

	one, _, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get(1) error = %v", err)
	}
	two, _, err := s.Get(2)
	if err != nil {
		t.Fatalf("Get(2) error = %v", err)
	}
	if !one.LocalMode || two.LocalMode {
		t.Fatalf("Get() = %+v, %+v, want independent per-chat flags", one, two)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "state")
	first, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := first.SetLocalMode(context.Background(), 7, true); err != nil {
		t.Fatalf("SetLocalMode() error = %v", err)
	}

	second, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	settings, found, err := second.Get(7)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || !settings.LocalMode {
		t.Fatalf("Get() = %+v found=%v, want persisted flag", settings, found)
	}
}
