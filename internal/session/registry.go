package session

import (
	"sync"
	"time"
)

// Registry tracks active sessions under two indices, by player id and by
// connection id. The indices are only ever mutated together under one
// lock so they stay exactly symmetric.
type Registry struct {
	mu       sync.Mutex
	byPlayer map[PlayerId]*Session
	byConn   map[string]PlayerId
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byPlayer: make(map[PlayerId]*Session),
		byConn:   make(map[string]PlayerId),
	}
}

// GetOrAssign returns the session for a connection, allocating a fresh
// player id if the connection has none yet. Idempotent: a retried
// handshake gets the same id back rather than orphaning a session.
func (r *Registry) GetOrAssign(connID string) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pid, ok := r.byConn[connID]; ok {
		return r.byPlayer[pid], false, nil
	}

	pid, err := NewPlayerId()
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	sess := &Session{
		PlayerID:    pid,
		ConnID:      connID,
		ConnectedAt: now,
		LastSeen:    now,
	}
	r.byPlayer[pid] = sess
	r.byConn[connID] = pid
	return sess, true, nil
}

// Get returns the session for a player id, or nil.
func (r *Registry) Get(pid PlayerId) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byPlayer[pid]
}

// PlayerFor returns the player id bound to a connection, or zero.
func (r *Registry) PlayerFor(connID string) (PlayerId, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pid, ok := r.byConn[connID]
	return pid, ok
}

// Touch updates last-seen bookkeeping for a connection. A connection
// without a session is ignored. There is no timeout eviction; this is
// liveness data for operators and future idle handling.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid, ok := r.byConn[connID]
	if !ok {
		return
	}
	if sess, ok := r.byPlayer[pid]; ok {
		sess.LastSeen = time.Now()
	}
}

// RemoveByConn removes a connection's session from both indices and
// returns it, or nil if the connection never completed a handshake.
func (r *Registry) RemoveByConn(connID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	delete(r.byConn, connID)

	sess := r.byPlayer[pid]
	delete(r.byPlayer, pid)
	return sess
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPlayer)
}
