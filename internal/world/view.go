package world

import (
	"fmt"
	"sync"

	"github.com/pixil98/go-worldserv/internal/terrain"
)

// View is a lazily-populated, capacity-bounded cache of generated terrain
// chunks. Eviction is always safe: chunks are pure functions of
// (seed, cx, cy) and are regenerated on the next miss.
type View struct {
	chunkSize int
	gen       *terrain.Generator

	mu    sync.Mutex
	cache *LRU[ChunkKey, *Chunk]
}

// NewView creates a view over gen with the given chunk size and resident
// chunk capacity.
func NewView(gen *terrain.Generator, chunkSize, maxChunks int) (*View, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero, got %d", chunkSize)
	}
	cache, err := NewLRU[ChunkKey, *Chunk](maxChunks, nil)
	if err != nil {
		return nil, fmt.Errorf("creating chunk cache: %w", err)
	}
	return &View{
		chunkSize: chunkSize,
		gen:       gen,
		cache:     cache,
	}, nil
}

// ChunkSize returns the global chunk size shared by generation, overlay,
// and subscription.
func (v *View) ChunkSize() int {
	return v.chunkSize
}

// TerrainAt returns the generated tile at a world coordinate, generating
// and caching the owning chunk on a miss.
func (v *View) TerrainAt(wx, wy int) terrain.TileType {
	key, local := SplitWorld(wx, wy, v.chunkSize)
	return v.GetChunk(key).TerrainAt(local)
}

// GetChunk returns the chunk at key, generating it on a cache miss.
func (v *View) GetChunk(key ChunkKey) *Chunk {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ch, ok := v.cache.Get(key); ok {
		return ch
	}

	ch := NewChunk(v.chunkSize, v.gen.GenerateChunk(key.CX, key.CY, v.chunkSize))
	v.cache.Put(key, ch)
	return ch
}

// ResidentChunks returns the number of chunks currently cached.
func (v *View) ResidentChunks() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cache.Len()
}
