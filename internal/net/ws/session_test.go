package ws

import (
	"errors"
	"testing"

	"github.com/gorilla/websocket"
)

func TestSessionSendClosesOnFullOutbox(t *testing.T) {
	s := newSession(1, nil, "test", Config{OutboxSize: 1}.Normalized(), nil)
	if err := s.Send([]byte{1}); err != nil {
		t.Fatalf("first Send returned error: %v", err)
	}
	if err := s.Send([]byte{2}); !errors.Is(err, ErrOutboxFull) {
		t.Fatalf("expected ErrOutboxFull, got %v", err)
	}
	if !s.Closed() {
		t.Fatalf("expected full outbox to close the session")
	}
	if code, _ := s.CloseStatus(); code != websocket.CloseTryAgainLater {
		t.Fatalf("expected close code %d, got %d", websocket.CloseTryAgainLater, code)
	}
	if err := s.Send([]byte{3}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSessionCloseKeepsFirstStatus(t *testing.T) {
	s := newSession(1, nil, "test", Config{}.Normalized(), nil)
	s.CloseWith(websocket.ClosePolicyViolation, "protocol violation")
	s.Close()
	code, reason := s.CloseStatus()
	if code != websocket.ClosePolicyViolation || reason != "protocol violation" {
		t.Fatalf("unexpected close status %d %q", code, reason)
	}
}

type countingPauser struct {
	pauses   int
	unpauses int
}

func (p *countingPauser) Pause()   { p.pauses++ }
func (p *countingPauser) Unpause() { p.unpauses++ }

func TestRegistryAutoPause(t *testing.T) {
	pauser := &countingPauser{}
	registry := NewRegistry(pauser, true, nil, nil)
	cfg := Config{}.Normalized()
	a := newSession(1, nil, "a", cfg, nil)
	b := newSession(2, nil, "b", cfg, nil)

	registry.Add(a)
	registry.Add(b)
	if pauser.unpauses != 1 {
		t.Fatalf("expected a single unpause, got %d", pauser.unpauses)
	}
	registry.Remove(a.ID())
	if pauser.pauses != 0 {
		t.Fatalf("expected no pause while a session remains")
	}
	registry.Remove(b.ID())
	registry.Remove(b.ID())
	if pauser.pauses != 1 {
		t.Fatalf("expected a single pause, got %d", pauser.pauses)
	}
	if got := registry.Sessions(); len(got) != 0 {
		t.Fatalf("expected empty registry, got %d", len(got))
	}
}

func TestRegistryWithoutAutoPause(t *testing.T) {
	pauser := &countingPauser{}
	registry := NewRegistry(pauser, false, nil, nil)
	s := newSession(1, nil, "a", Config{}.Normalized(), nil)
	registry.Add(s)
	registry.Remove(s.ID())
	if pauser.pauses != 0 || pauser.unpauses != 0 {
		t.Fatalf("expected pauser untouched, got %+v", pauser)
	}
}
