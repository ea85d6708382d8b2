package server

import (
	"errors"
	"testing"
	"time"
)

func newTestSession() *Session {
	return NewSession(nil, SessionConfig{})
}

func TestManagerCapacity(t *testing.T) {
	m := NewManager(2)
	a, b, c := newTestSession(), newTestSession(), newTestSession()

	if err := m.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(b); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(c); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("err = %v, want ErrTooManySessions", err)
	}

	m.Remove(a.ID)
	if err := m.Add(c); err != nil {
		t.Fatalf("add after remove: %v", err)
	}
}

func TestManagerGet(t *testing.T) {
	m := NewManager(0)
	s := newTestSession()
	if err := m.Add(s); err != nil {
		t.Fatal(err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Error("returned a different session")
	}
	if _, err := m.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerCloseIdle(t *testing.T) {
	m := NewManager(0)
	idle, active := newTestSession(), newTestSession()
	if err := m.Add(idle); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(active); err != nil {
		t.Fatal(err)
	}

	idle.lastActive.Store(time.Now().Add(-time.Hour).UnixNano())

	if n := m.CloseIdle(10 * time.Minute); n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	if _, err := m.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session still registered")
	}
	if _, err := m.Get(active.ID); err != nil {
		t.Error("active session swept")
	}
	select {
	case <-idle.Done():
	default:
		t.Error("idle session was not closed")
	}
}

func TestManagerStats(t *testing.T) {
	m := NewManager(0)
	a, b := newTestSession(), newTestSession()
	if err := m.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(b); err != nil {
		t.Fatal(err)
	}
	m.Remove(a.ID)

	got := m.Stats()
	want := Stats{Active: 1, Created: 2, Closed: 1, Peak: 2}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}

	m.CloseAll()
	if m.Len() != 0 {
		t.Error("sessions remain after CloseAll")
	}
}
