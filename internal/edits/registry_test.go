package edits

import (
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"
	"github.com/pixil98/go-worldserv/internal/inventory"
	"github.com/pixil98/go-worldserv/internal/session"
	"github.com/pixil98/go-worldserv/internal/world"
)

const owner = session.PlayerId(777)

func newTestRegistry(t *testing.T, maxChunks int) *Registry {
	t.Helper()
	r, err := NewRegistry(NewMemStore(), 32, maxChunks)
	if err != nil {
		t.Fatalf("creating registry: %v", err)
	}
	return r
}

func TestRegistry_PlaceThenSnapshot(t *testing.T) {
	r := newTestRegistry(t, 8)

	applied, err := r.ApplyPlace(owner, 5, 5, inventory.ResourceHouse, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "op", applied.Op, OpPlace)
	testutil.AssertEqual(t, "cx", applied.CX, 0)
	testutil.AssertEqual(t, "cy", applied.CY, 0)
	testutil.AssertEqual(t, "lx", applied.LX, 5)
	testutil.AssertEqual(t, "ly", applied.LY, 5)
	testutil.AssertEqual(t, "obj", applied.Obj, inventory.ResourceHouse)
	testutil.AssertEqual(t, "rot", *applied.Rot, 0)
	testutil.AssertEqual(t, "owner", applied.OwnerID, owner)

	snap, err := r.Snapshot(world.ChunkKey{CX: 0, CY: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "snapshot size", len(snap), 1)
	testutil.AssertEqual(t, "snapshot lx", snap[0].LX, 5)
	testutil.AssertEqual(t, "snapshot obj", snap[0].Obj, inventory.ResourceHouse)
	testutil.AssertEqual(t, "snapshot owner", *snap[0].OwnerID, owner)
}

func TestRegistry_PersistenceRoundTripAcrossEviction(t *testing.T) {
	r := newTestRegistry(t, 8)

	applied, err := r.ApplyPlace(owner, -3, -3, inventory.ResourceTree, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := world.ChunkKey{CX: applied.CX, CY: applied.CY}
	testutil.AssertEqual(t, "evicted", r.Evict(key), true)

	snap, err := r.Snapshot(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "snapshot size", len(snap), 1)
	testutil.AssertEqual(t, "lx", snap[0].LX, applied.LX)
	testutil.AssertEqual(t, "ly", snap[0].LY, applied.LY)
	testutil.AssertEqual(t, "obj", snap[0].Obj, inventory.ResourceTree)
	testutil.AssertEqual(t, "rot", snap[0].Rot, 2)
	testutil.AssertEqual(t, "owner", *snap[0].OwnerID, owner)
	testutil.AssertEqual(t, "timestamp", snap[0].UpdatedAt, applied.UpdatedAt)
}

func TestRegistry_LastWriterWins(t *testing.T) {
	r := newTestRegistry(t, 8)

	if _, err := r.ApplyPlace(owner, 10, 10, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := session.PlayerId(1234)
	if _, err := r.ApplyPlace(other, 10, 10, inventory.ResourceRock, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obj, ok, err := r.ObjectAt(10, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "occupied", ok, true)
	testutil.AssertEqual(t, "obj", obj.Obj, inventory.ResourceRock)
	testutil.AssertEqual(t, "owner", *obj.OwnerID, other)
}

func TestRegistry_CanPlace(t *testing.T) {
	r := newTestRegistry(t, 8)

	ok, err := r.CanPlace(40, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "empty tile", ok, true)

	if _, err := r.ApplyPlace(owner, 40, 40, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ok, err = r.CanPlace(40, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "occupied tile", ok, false)
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := newTestRegistry(t, 8)

	if _, err := r.ApplyPlace(owner, 5, 5, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	applied, removed, err := r.ApplyRemove(owner, 5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "op", applied.Op, OpRemove)
	testutil.AssertEqual(t, "had object", *applied.HadObject, true)
	testutil.AssertEqual(t, "removed object", removed.Obj, inventory.ResourceHouse)

	again, none, err := r.ApplyRemove(owner, 5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "had object on retry", *again.HadObject, false)
	testutil.AssertEqual(t, "nothing removed on retry", none.Obj, inventory.Resource(""))

	snap, err := r.Snapshot(world.ChunkKey{CX: 0, CY: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "snapshot empty", len(snap), 0)
}

func TestRegistry_EvictionUnderPressureIsTransparent(t *testing.T) {
	r := newTestRegistry(t, 2)

	if _, err := r.ApplyPlace(owner, 1, 1, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Touch enough other chunks to force chunk (0,0) out.
	for i := 1; i <= 5; i++ {
		if _, err := r.Snapshot(world.ChunkKey{CX: i, CY: 0}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	testutil.AssertEqual(t, "resident bounded", r.ResidentChunks(), 2)

	snap, err := r.Snapshot(world.ChunkKey{CX: 0, CY: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "reloaded placements", len(snap), 1)
}

// failingStore wraps a Store and fails writes on demand.
type failingStore struct {
	Store
	failWrites bool
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Upsert(key world.ChunkKey, local world.LocalKey, obj PlacedObject) error {
	if s.failWrites {
		return errDiskFull
	}
	return s.Store.Upsert(key, local, obj)
}

func (s *failingStore) Delete(key world.ChunkKey, local world.LocalKey) error {
	if s.failWrites {
		return errDiskFull
	}
	return s.Store.Delete(key, local)
}

func TestRegistry_StoreFailurePropagatesWithoutCacheMutation(t *testing.T) {
	fs := &failingStore{Store: NewMemStore()}
	r, err := NewRegistry(fs, 32, 8)
	if err != nil {
		t.Fatalf("creating registry: %v", err)
	}

	fs.failWrites = true
	if _, err := r.ApplyPlace(owner, 5, 5, inventory.ResourceHouse, 0); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected disk full error, got %v", err)
	}

	// The failed write must not be visible in the cache.
	ok, err := r.CanPlace(5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "tile still empty", ok, true)

	// A remove whose delete fails must keep the object.
	fs.failWrites = false
	if _, err := r.ApplyPlace(owner, 5, 5, inventory.ResourceHouse, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fs.failWrites = true
	if _, _, err := r.ApplyRemove(owner, 5, 5); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected disk full error, got %v", err)
	}
	obj, occupied, err := r.ObjectAt(5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "still occupied", occupied, true)
	testutil.AssertEqual(t, "object kept", obj.Obj, inventory.ResourceHouse)
}
