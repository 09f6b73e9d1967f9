package edits

import (
	"sync"

	"github.com/pixil98/go-worldserv/internal/world"
)

// Store is the durable backend for placed objects, keyed by
// (chunk, local coordinate). Implementations must tolerate concurrent
// callers; operations are synchronous and complete before returning.
type Store interface {
	// LoadChunk returns every stored placement for a chunk.
	LoadChunk(key world.ChunkKey) (map[world.LocalKey]PlacedObject, error)
	// Upsert inserts or replaces the placement at a tile.
	Upsert(key world.ChunkKey, local world.LocalKey, obj PlacedObject) error
	// Delete removes the placement at a tile if one exists.
	Delete(key world.ChunkKey, local world.LocalKey) error
	// Close releases the backend.
	Close() error
}

// MemStore is an in-memory Store. It backs unit tests and store-less
// development configurations; edits survive only as long as the process.
type MemStore struct {
	mu      sync.Mutex
	records map[world.ChunkKey]map[world.LocalKey]PlacedObject
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[world.ChunkKey]map[world.LocalKey]PlacedObject),
	}
}

func (s *MemStore) LoadChunk(key world.ChunkKey) (map[world.LocalKey]PlacedObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[world.LocalKey]PlacedObject, len(s.records[key]))
	for local, obj := range s.records[key] {
		out[local] = obj
	}
	return out, nil
}

func (s *MemStore) Upsert(key world.ChunkKey, local world.LocalKey, obj PlacedObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, ok := s.records[key]
	if !ok {
		chunk = make(map[world.LocalKey]PlacedObject)
		s.records[key] = chunk
	}
	chunk[local] = obj
	return nil
}

func (s *MemStore) Delete(key world.ChunkKey, local world.LocalKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chunk, ok := s.records[key]; ok {
		delete(chunk, local)
		if len(chunk) == 0 {
			delete(s.records, key)
		}
	}
	return nil
}

func (s *MemStore) Close() error {
	return nil
}
