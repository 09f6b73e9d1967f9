package session

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestNewPlayerId_NonZero(t *testing.T) {
	seen := make(map[PlayerId]bool)
	for i := 0; i < 64; i++ {
		id, err := NewPlayerId()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id == 0 {
			t.Fatal("player id must never be zero")
		}
		if seen[id] {
			t.Fatalf("duplicate id %d in 64 draws", id)
		}
		seen[id] = true
	}
}

func TestRegistry_GetOrAssignIsIdempotent(t *testing.T) {
	r := NewRegistry()

	sess, created, err := r.GetOrAssign("conn-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "created", created, true)
	testutil.AssertEqual(t, "count", r.Count(), 1)

	again, created, err := r.GetOrAssign("conn-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "created on retry", created, false)
	testutil.AssertEqual(t, "same player id", again.PlayerID, sess.PlayerID)
	testutil.AssertEqual(t, "count unchanged", r.Count(), 1)
}

func TestRegistry_IndicesStaySymmetric(t *testing.T) {
	r := NewRegistry()

	s1, _, err := r.GetOrAssign("conn-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, _, err := r.GetOrAssign("conn-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pid, ok := r.PlayerFor("conn-1")
	testutil.AssertEqual(t, "conn-1 bound", ok, true)
	testutil.AssertEqual(t, "conn-1 player", pid, s1.PlayerID)

	removed := r.RemoveByConn("conn-1")
	if removed == nil {
		t.Fatal("expected removed session")
	}
	testutil.AssertEqual(t, "removed player", removed.PlayerID, s1.PlayerID)

	_, ok = r.PlayerFor("conn-1")
	testutil.AssertEqual(t, "conn index pruned", ok, false)
	if r.Get(s1.PlayerID) != nil {
		t.Error("player index not pruned")
	}
	if r.Get(s2.PlayerID) == nil {
		t.Error("unrelated session removed")
	}
	testutil.AssertEqual(t, "count", r.Count(), 1)
}

func TestRegistry_RemoveWithoutHandshake(t *testing.T) {
	r := NewRegistry()
	if r.RemoveByConn("never-seen") != nil {
		t.Error("expected nil for connection without a session")
	}
}

func TestRegistry_TouchUpdatesLastSeen(t *testing.T) {
	r := NewRegistry()
	sess, _, err := r.GetOrAssign("conn-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := sess.LastSeen
	r.Touch("conn-1")
	if sess.LastSeen.Before(before) {
		t.Error("last seen went backwards")
	}

	// Touching an unknown connection must be a no-op.
	r.Touch("never-seen")
}
