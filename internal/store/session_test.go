package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Hour)

	id, err := s.NewSession("alice")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	username, ok, err := s.GetUsernameBySession(id)
	if err != nil || !ok {
		t.Fatalf("resolve session: ok=%v err=%v", ok, err)
	}
	if username != "alice" {
		t.Fatalf("session user = %q, want alice", username)
	}

	if err := s.DeleteSession(id); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUsernameBySession(id); err != nil || ok {
		t.Fatalf("deleted session still resolves: ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStoreExpires(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)

	id, err := s.NewSession("alice")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	redis.FastForward(2 * time.Minute)
	if _, ok, err := s.GetUsernameBySession(id); err != nil || ok {
		t.Fatalf("expired session still resolves: ok=%v err=%v", ok, err)
	}
}

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	s := NewMemorySessionStore(time.Hour)
	id, err := s.NewSession("bob")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	username, ok, err := s.GetUsernameBySession(id)
	if err != nil || !ok || username != "bob" {
		t.Fatalf("resolve = (%q, %v, %v)", username, ok, err)
	}
	if _, ok, _ := s.GetUsernameBySession("unknown-id"); ok {
		t.Fatal("unknown session id resolved")
	}
	if err := s.DeleteSession(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.GetUsernameBySession(id); ok {
		t.Fatal("deleted session resolved")
	}
}

func TestMemorySessionStoreExpires(t *testing.T) {
	s := NewMemorySessionStore(time.Millisecond)
	id, err := s.NewSession("bob")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok, _ := s.GetUsernameBySession(id); ok {
		t.Fatal("expired session resolved")
	}
}
