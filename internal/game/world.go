package game

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-worldserv/internal/edits"
	"github.com/pixil98/go-worldserv/internal/inventory"
	"github.com/pixil98/go-worldserv/internal/messaging"
	"github.com/pixil98/go-worldserv/internal/session"
	"github.com/pixil98/go-worldserv/internal/wire"
	"github.com/pixil98/go-worldserv/internal/world"
)

// WorldService owns the chunk subscription index and fans applied edits
// out to subscribers. Subscription is the sole mechanism bounding update
// traffic: the world is unbounded in extent, so nothing is ever pushed
// to a player who isn't subscribed to the chunk.
type WorldService struct {
	edits *edits.Registry
	pub   messaging.Publisher

	// applyMu serializes apply+publish so broadcasts go out in applied
	// order. NATS preserves per-subject order once publishes themselves
	// are ordered, so holding this across the publish loop is what keeps
	// a chunk's subscribers converging on the authoritative state.
	applyMu sync.Mutex

	mu sync.Mutex
	// chunkSubs and playerSubs mirror each other exactly; they are only
	// ever mutated together while holding mu. Empty sets are deleted.
	chunkSubs  map[world.ChunkKey]map[session.PlayerId]struct{}
	playerSubs map[session.PlayerId]map[world.ChunkKey]struct{}
}

// NewWorldService creates a service over the edit registry, delivering
// broadcasts through pub.
func NewWorldService(reg *edits.Registry, pub messaging.Publisher) *WorldService {
	return &WorldService{
		edits:      reg,
		pub:        pub,
		chunkSubs:  make(map[world.ChunkKey]map[session.PlayerId]struct{}),
		playerSubs: make(map[session.PlayerId]map[world.ChunkKey]struct{}),
	}
}

// Subscribe adds the player to a chunk's subscriber set and returns the
// chunk's full current snapshot, so a newly-viewing client never misses
// existing edits.
func (s *WorldService) Subscribe(pid session.PlayerId, key world.ChunkKey) ([]edits.Placement, error) {
	s.mu.Lock()
	if _, ok := s.chunkSubs[key]; !ok {
		s.chunkSubs[key] = make(map[session.PlayerId]struct{})
	}
	s.chunkSubs[key][pid] = struct{}{}

	if _, ok := s.playerSubs[pid]; !ok {
		s.playerSubs[pid] = make(map[world.ChunkKey]struct{})
	}
	s.playerSubs[pid][key] = struct{}{}
	s.mu.Unlock()

	return s.edits.Snapshot(key)
}

// Unsubscribe removes the player from a chunk's subscriber set.
func (s *WorldService) Unsubscribe(pid session.PlayerId, key world.ChunkKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.chunkSubs[key]; ok {
		delete(set, pid)
		if len(set) == 0 {
			delete(s.chunkSubs, key)
		}
	}
	if set, ok := s.playerSubs[pid]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(s.playerSubs, pid)
		}
	}
}

// OnDisconnect removes the player from every chunk's subscriber set.
// This is the single mandatory cleanup path; without it stale ids would
// accumulate in subscriber sets forever.
func (s *WorldService) OnDisconnect(pid session.PlayerId) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.playerSubs[pid] {
		if set, ok := s.chunkSubs[key]; ok {
			delete(set, pid)
			if len(set) == 0 {
				delete(s.chunkSubs, key)
			}
		}
	}
	delete(s.playerSubs, pid)
}

// Snapshot returns a chunk's current placements without subscribing.
func (s *WorldService) Snapshot(key world.ChunkKey) ([]edits.Placement, error) {
	return s.edits.Snapshot(key)
}

// ObjectAt reports the placed object at a world coordinate, if any.
func (s *WorldService) ObjectAt(wx, wy int) (edits.PlacedObject, bool, error) {
	return s.edits.ObjectAt(wx, wy)
}

// ChunkSize returns the chunk size shared with the edit registry.
func (s *WorldService) ChunkSize() int {
	return s.edits.ChunkSize()
}

// ApplyPlace persists a placement and broadcasts it to the chunk's
// current subscribers. Persistence completes inside this call, before
// the result (or any broadcast) is visible to anyone, and the broadcast
// goes out under applyMu so concurrent edits are published in the order
// they applied.
func (s *WorldService) ApplyPlace(pid session.PlayerId, wx, wy int, obj inventory.Resource, rot int) (edits.AppliedEdit, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	applied, err := s.edits.ApplyPlace(pid, wx, wy, obj, rot)
	if err != nil {
		return edits.AppliedEdit{}, err
	}
	s.broadcast(applied)
	return applied, nil
}

// ApplyRemove persists a removal and broadcasts it to the chunk's
// current subscribers, returning the removed object so the caller can
// settle a refund from the same atomic step.
func (s *WorldService) ApplyRemove(pid session.PlayerId, wx, wy int) (edits.AppliedEdit, edits.PlacedObject, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	applied, removed, err := s.edits.ApplyRemove(pid, wx, wy)
	if err != nil {
		return edits.AppliedEdit{}, edits.PlacedObject{}, err
	}
	s.broadcast(applied)
	return applied, removed, nil
}

// broadcast delivers an applied edit to every subscriber of its chunk.
// A delivery failure to one recipient is logged and skipped; it never
// aborts delivery to the rest.
func (s *WorldService) broadcast(applied edits.AppliedEdit) {
	data, err := wire.Encode(wire.NewEditApplied(applied))
	if err != nil {
		slog.Error("encoding edit broadcast", "error", err)
		return
	}

	key := world.ChunkKey{CX: applied.CX, CY: applied.CY}

	s.mu.Lock()
	recipients := make([]session.PlayerId, 0, len(s.chunkSubs[key]))
	for pid := range s.chunkSubs[key] {
		recipients = append(recipients, pid)
	}
	s.mu.Unlock()

	for _, pid := range recipients {
		if err := s.pub.PublishTo(pid, data); err != nil {
			slog.Warn("delivering edit broadcast",
				"player_id", pid, "cx", key.CX, "cy", key.CY, "error", err)
		}
	}
}

// Subscribers returns a copy of a chunk's current subscriber set.
func (s *WorldService) Subscribers(key world.ChunkKey) []session.PlayerId {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]session.PlayerId, 0, len(s.chunkSubs[key]))
	for pid := range s.chunkSubs[key] {
		out = append(out, pid)
	}
	return out
}

// SubscriptionsOf returns a copy of the chunks a player is subscribed to.
func (s *WorldService) SubscriptionsOf(pid session.PlayerId) []world.ChunkKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]world.ChunkKey, 0, len(s.playerSubs[pid]))
	for key := range s.playerSubs[pid] {
		out = append(out, key)
	}
	return out
}

// Stats summarizes the subscription index for operational logging.
func (s *WorldService) Stats() (chunks, players int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunkSubs), len(s.playerSubs)
}

// checkSymmetry validates the mirror invariant; test hook.
func (s *WorldService) checkSymmetry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, set := range s.chunkSubs {
		if len(set) == 0 {
			return fmt.Errorf("empty subscriber set retained for chunk (%d,%d)", key.CX, key.CY)
		}
		for pid := range set {
			if _, ok := s.playerSubs[pid][key]; !ok {
				return fmt.Errorf("player %d missing mirror of chunk (%d,%d)", pid, key.CX, key.CY)
			}
		}
	}
	for pid, set := range s.playerSubs {
		if len(set) == 0 {
			return fmt.Errorf("empty subscription set retained for player %d", pid)
		}
		for key := range set {
			if _, ok := s.chunkSubs[key][pid]; !ok {
				return fmt.Errorf("chunk (%d,%d) missing mirror of player %d", key.CX, key.CY, pid)
			}
		}
	}
	return nil
}
