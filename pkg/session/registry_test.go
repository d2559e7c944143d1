package session

import (
	"errors"
	"testing"

	"github.com/harunnryd/voxa/pkg/errorsx"
)

func TestCreateRejectsActiveDuplicate(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("guild-1", "chan-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := r.Create("guild-1", "chan-2")
	if !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	if errorsx.Reason(err) != errorsx.ReasonAlreadyActive {
		t.Fatalf("expected already_active reason, got %s", errorsx.Reason(err))
	}
}

func TestCreateReplacesDeactivatedLeftover(t *testing.T) {
	r := NewRegistry()
	first, err := r.Create("guild-1", "chan-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r.Deactivate("guild-1")
	second, err := r.Create("guild-1", "chan-2")
	if err != nil {
		t.Fatalf("expected deactivated session to be replaced, got %v", err)
	}
	if first == second {
		t.Fatalf("expected a fresh session entry")
	}
	if !second.Active() {
		t.Fatalf("fresh session must start active")
	}
}

func TestDeactivateIdempotent(t *testing.T) {
	r := NewRegistry()
	s, _ := r.Create("guild-1", "chan-1")
	r.Deactivate("guild-1")
	r.Deactivate("guild-1")
	r.Deactivate("missing")
	if s.Active() {
		t.Fatalf("expected session inactive")
	}
}

func TestGetAndRemove(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	s, _ := r.Create("guild-1", "chan-1")
	got, err := r.Get("guild-1")
	if err != nil || got != s {
		t.Fatalf("get returned %v, %v", got, err)
	}
	r.Remove("guild-1")
	r.Remove("guild-1")
	if _, err := r.Get("guild-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected removal, got %v", err)
	}
}
