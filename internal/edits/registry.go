package edits

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pixil98/go-worldserv/internal/inventory"
	"github.com/pixil98/go-worldserv/internal/session"
	"github.com/pixil98/go-worldserv/internal/world"
)

// Registry is the authoritative in-memory view of the edit overlay. Chunk
// overlays are loaded from the store on first access, cached with LRU
// eviction, and written through on every mutation: the store write
// completes before the caller is told the edit applied. Eviction only
// drops a cache entry; the store keeps the authoritative data, so a
// still-subscribed chunk can be evicted and reloaded with no observable
// difference.
type Registry struct {
	store     Store
	chunkSize int

	mu    sync.Mutex
	cache *world.LRU[world.ChunkKey, *chunkEdits]
}

// NewRegistry creates a registry over store with the given chunk size and
// resident overlay capacity.
func NewRegistry(store Store, chunkSize, maxChunks int) (*Registry, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero, got %d", chunkSize)
	}
	cache, err := world.NewLRU[world.ChunkKey, *chunkEdits](maxChunks, nil)
	if err != nil {
		return nil, fmt.Errorf("creating overlay cache: %w", err)
	}
	return &Registry{
		store:     store,
		chunkSize: chunkSize,
		cache:     cache,
	}, nil
}

// ChunkSize returns the chunk size the registry maps world coordinates
// with. It must match the terrain view's so overlay and terrain align.
func (r *Registry) ChunkSize() int {
	return r.chunkSize
}

// getOrLoad returns the resident overlay for a chunk, loading it from the
// store on a miss. Caller holds r.mu.
func (r *Registry) getOrLoad(key world.ChunkKey) (*chunkEdits, error) {
	if ch, ok := r.cache.Get(key); ok {
		ch.lastAccess = time.Now()
		return ch, nil
	}

	tiles, err := r.store.LoadChunk(key)
	if err != nil {
		return nil, fmt.Errorf("loading overlay for chunk (%d,%d): %w", key.CX, key.CY, err)
	}

	ch := newChunkEdits()
	ch.tiles = tiles
	ch.lastAccess = time.Now()
	r.cache.Put(key, ch)
	return ch, nil
}

// Snapshot returns every placement in a chunk in wire form, ordered by
// local coordinate.
func (r *Registry) Snapshot(key world.ChunkKey) ([]Placement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.getOrLoad(key)
	if err != nil {
		return nil, err
	}

	out := make([]Placement, 0, len(ch.tiles))
	for local, obj := range ch.tiles {
		out = append(out, obj.toPlacement(local))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LY != out[j].LY {
			return out[i].LY < out[j].LY
		}
		return out[i].LX < out[j].LX
	})
	return out, nil
}

// CanPlace reports whether the tile at a world coordinate has no current
// placement.
func (r *Registry) CanPlace(wx, wy int) (bool, error) {
	key, local := world.SplitWorld(wx, wy, r.chunkSize)

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.getOrLoad(key)
	if err != nil {
		return false, err
	}
	_, occupied := ch.tiles[local]
	return !occupied, nil
}

// ApplyPlace writes a placement at a world coordinate, unconditionally
// overwriting any prior occupant (last-writer-wins). The store write
// happens first; if it fails the cache is left untouched and the error
// propagates, so a client is never told an edit applied that wasn't
// durable.
func (r *Registry) ApplyPlace(pid session.PlayerId, wx, wy int, obj inventory.Resource, rot int) (AppliedEdit, error) {
	key, local := world.SplitWorld(wx, wy, r.chunkSize)

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.getOrLoad(key)
	if err != nil {
		return AppliedEdit{}, err
	}

	owner := pid
	placed := PlacedObject{
		Obj:       obj,
		Rot:       rot,
		OwnerID:   &owner,
		UpdatedAt: nowSeconds(),
	}

	if err := r.store.Upsert(key, local, placed); err != nil {
		return AppliedEdit{}, fmt.Errorf("persisting placement: %w", err)
	}
	ch.tiles[local] = placed

	rotOut := rot
	return AppliedEdit{
		Op:        OpPlace,
		CX:        key.CX,
		CY:        key.CY,
		LX:        local.LX,
		LY:        local.LY,
		Obj:       obj,
		Rot:       &rotOut,
		OwnerID:   pid,
		UpdatedAt: placed.UpdatedAt,
	}, nil
}

// ApplyRemove deletes the placement at a world coordinate if one exists
// and returns it alongside the applied edit, so callers settle refunds
// from the same atomic step that performed the removal. Removing an
// empty tile is a successful no-op with HadObject=false, so retried
// removes are idempotent.
func (r *Registry) ApplyRemove(pid session.PlayerId, wx, wy int) (AppliedEdit, PlacedObject, error) {
	key, local := world.SplitWorld(wx, wy, r.chunkSize)

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.getOrLoad(key)
	if err != nil {
		return AppliedEdit{}, PlacedObject{}, err
	}

	removed, had := ch.tiles[local]
	if had {
		if err := r.store.Delete(key, local); err != nil {
			return AppliedEdit{}, PlacedObject{}, fmt.Errorf("persisting removal: %w", err)
		}
		delete(ch.tiles, local)
	}

	hadOut := had
	return AppliedEdit{
		Op:        OpRemove,
		CX:        key.CX,
		CY:        key.CY,
		LX:        local.LX,
		LY:        local.LY,
		OwnerID:   pid,
		UpdatedAt: nowSeconds(),
		HadObject: &hadOut,
	}, removed, nil
}

// ObjectAt returns the placement currently at a world coordinate.
func (r *Registry) ObjectAt(wx, wy int) (PlacedObject, bool, error) {
	key, local := world.SplitWorld(wx, wy, r.chunkSize)

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, err := r.getOrLoad(key)
	if err != nil {
		return PlacedObject{}, false, err
	}
	obj, ok := ch.tiles[local]
	return obj, ok, nil
}

// Evict drops a chunk's cache entry, reporting whether one was resident.
// The next access reloads identical data from the store.
func (r *Registry) Evict(key world.ChunkKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cache.Pop(key)
	return ok
}

// ResidentChunks returns the number of overlays currently cached.
func (r *Registry) ResidentChunks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
