package game

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"github.com/pixil98/go-worldserv/internal/edits"
	"github.com/pixil98/go-worldserv/internal/inventory"
	"github.com/pixil98/go-worldserv/internal/session"
	"github.com/pixil98/go-worldserv/internal/world"
)

// capturePublisher records deliveries per player and can fail selected
// recipients.
type capturePublisher struct {
	mu       sync.Mutex
	payloads map[session.PlayerId][][]byte
	fail     map[session.PlayerId]bool
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{
		payloads: make(map[session.PlayerId][][]byte),
		fail:     make(map[session.PlayerId]bool),
	}
}

func (p *capturePublisher) PublishTo(pid session.PlayerId, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[pid] {
		return errors.New("connection reset")
	}
	p.payloads[pid] = append(p.payloads[pid], data)
	return nil
}

func (p *capturePublisher) count(pid session.PlayerId) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads[pid])
}

func newTestService(t *testing.T) (*WorldService, *capturePublisher) {
	t.Helper()
	reg, err := edits.NewRegistry(edits.NewMemStore(), 32, 64)
	if err != nil {
		t.Fatalf("creating registry: %v", err)
	}
	pub := newCapturePublisher()
	return NewWorldService(reg, pub), pub
}

const (
	alice = session.PlayerId(1)
	bob   = session.PlayerId(2)
	carol = session.PlayerId(3)
)

var origin = world.ChunkKey{CX: 0, CY: 0}

func TestWorldService_SubscribeReturnsSnapshot(t *testing.T) {
	s, _ := newTestService(t)

	snap, err := s.Subscribe(alice, origin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "empty world snapshot", len(snap), 0)

	if _, err := s.ApplyPlace(alice, 5, 5, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A second subscriber joining afterward sees the existing edit.
	snap, err = s.Subscribe(bob, origin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "late join snapshot", len(snap), 1)
	testutil.AssertEqual(t, "lx", snap[0].LX, 5)
	testutil.AssertEqual(t, "obj", snap[0].Obj, inventory.ResourceHouse)
}

func TestWorldService_BroadcastReachesOnlySubscribers(t *testing.T) {
	s, pub := newTestService(t)

	mustSubscribe(t, s, alice, origin)
	mustSubscribe(t, s, bob, origin)
	mustSubscribe(t, s, carol, world.ChunkKey{CX: 9, CY: 9})

	if _, err := s.ApplyPlace(alice, 5, 5, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "alice deliveries", pub.count(alice), 1)
	testutil.AssertEqual(t, "bob deliveries", pub.count(bob), 1)
	testutil.AssertEqual(t, "carol deliveries", pub.count(carol), 0)

	var msg struct {
		T  string `json:"t"`
		Op string `json:"op"`
		LX int    `json:"lx"`
		LY int    `json:"ly"`
	}
	if err := json.Unmarshal(pub.payloads[bob][0], &msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "t", msg.T, "edit_applied")
	testutil.AssertEqual(t, "op", msg.Op, "place")
	testutil.AssertEqual(t, "lx", msg.LX, 5)
}

func TestWorldService_DeliveryFailureIsIsolated(t *testing.T) {
	s, pub := newTestService(t)

	mustSubscribe(t, s, alice, origin)
	mustSubscribe(t, s, bob, origin)
	pub.fail[alice] = true

	if _, err := s.ApplyPlace(bob, 1, 1, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("apply must succeed despite a failing recipient: %v", err)
	}
	testutil.AssertEqual(t, "bob still delivered", pub.count(bob), 1)
}

func TestWorldService_UnsubscribeStopsDelivery(t *testing.T) {
	s, pub := newTestService(t)

	mustSubscribe(t, s, alice, origin)
	s.Unsubscribe(alice, origin)

	if _, err := s.ApplyPlace(bob, 2, 2, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "no deliveries", pub.count(alice), 0)

	if err := s.checkSymmetry(); err != nil {
		t.Error(err)
	}
}

func TestWorldService_IndicesStaySymmetric(t *testing.T) {
	s, _ := newTestService(t)

	keys := []world.ChunkKey{{CX: 0, CY: 0}, {CX: 1, CY: 0}, {CX: 0, CY: 1}, {CX: -1, CY: -1}}
	for _, k := range keys {
		mustSubscribe(t, s, alice, k)
		mustSubscribe(t, s, bob, k)
	}
	s.Unsubscribe(alice, keys[1])
	s.Unsubscribe(bob, keys[2])
	s.Unsubscribe(carol, keys[0]) // never subscribed; must be a no-op

	if err := s.checkSymmetry(); err != nil {
		t.Error(err)
	}

	testutil.AssertEqual(t, "alice subs", len(s.SubscriptionsOf(alice)), 3)
	testutil.AssertEqual(t, "key0 subscribers", len(s.Subscribers(keys[0])), 2)
}

func TestWorldService_OnDisconnectPrunesEverything(t *testing.T) {
	s, pub := newTestService(t)

	keys := []world.ChunkKey{{CX: 0, CY: 0}, {CX: 5, CY: 5}, {CX: -3, CY: 7}}
	for _, k := range keys {
		mustSubscribe(t, s, alice, k)
	}
	mustSubscribe(t, s, bob, keys[0])

	s.OnDisconnect(alice)

	testutil.AssertEqual(t, "alice subs gone", len(s.SubscriptionsOf(alice)), 0)
	for _, k := range keys {
		for _, pid := range s.Subscribers(k) {
			if pid == alice {
				t.Fatalf("alice still subscribed to (%d,%d)", k.CX, k.CY)
			}
		}
	}
	if err := s.checkSymmetry(); err != nil {
		t.Error(err)
	}

	if _, err := s.ApplyPlace(bob, 3, 3, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "no post-disconnect delivery", pub.count(alice), 0)
}

func mustSubscribe(t *testing.T, s *WorldService, pid session.PlayerId, key world.ChunkKey) {
	t.Helper()
	if _, err := s.Subscribe(pid, key); err != nil {
		t.Fatalf("subscribing player %d to (%d,%d): %v", pid, key.CX, key.CY, err)
	}
}

// gatePublisher stalls its first delivery until released, exposing any
// window between applying an edit and finishing its broadcast.
type gatePublisher struct {
	capturePublisher
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatePublisher() *gatePublisher {
	return &gatePublisher{
		capturePublisher: capturePublisher{
			payloads: make(map[session.PlayerId][][]byte),
			fail:     make(map[session.PlayerId]bool),
		},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (p *gatePublisher) PublishTo(pid session.PlayerId, data []byte) error {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return p.capturePublisher.PublishTo(pid, data)
}

// A broadcast stalled mid-delivery must hold back later edits to the
// same chunk, or a subscriber's last-seen update contradicts the
// authoritative store.
func TestWorldService_BroadcastOrderMatchesAppliedOrder(t *testing.T) {
	reg, err := edits.NewRegistry(edits.NewMemStore(), 32, 64)
	if err != nil {
		t.Fatalf("creating registry: %v", err)
	}
	pub := newGatePublisher()
	s := NewWorldService(reg, pub)

	mustSubscribe(t, s, alice, origin)

	first := make(chan error, 1)
	go func() {
		_, err := s.ApplyPlace(alice, 5, 5, inventory.ResourceHouse, 0)
		first <- err
	}()
	<-pub.entered

	// The second edit to the same tile must not finish while the first
	// one's broadcast is still in flight.
	second := make(chan error, 1)
	go func() {
		_, err := s.ApplyPlace(bob, 5, 5, inventory.ResourceRock, 0)
		second <- err
	}()

	select {
	case err := <-second:
		t.Fatalf("second edit completed before the first broadcast finished (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(pub.release)
	if err := <-first; err != nil {
		t.Fatalf("first edit: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second edit: %v", err)
	}

	var objs []string
	pub.mu.Lock()
	for _, payload := range pub.payloads[alice] {
		var msg struct {
			Obj string `json:"obj"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("unmarshaling broadcast: %v", err)
		}
		objs = append(objs, msg.Obj)
	}
	pub.mu.Unlock()

	if len(objs) != 2 {
		t.Fatalf("expected 2 broadcasts, got %v", objs)
	}

	tile, occupied, err := s.ObjectAt(5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "tile occupied", occupied, true)
	testutil.AssertEqual(t, "last broadcast matches authoritative state",
		objs[len(objs)-1], string(tile.Obj))
}
