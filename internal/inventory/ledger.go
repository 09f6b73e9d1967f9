package inventory

import (
	"sync"

	"github.com/pixil98/go-worldserv/internal/session"
)

// Ledger holds per-player resource balances. Balances are never negative:
// TryConsume is an atomic check-then-decrement that fails without
// mutating when the balance is short.
type Ledger struct {
	mu       sync.Mutex
	byPlayer map[session.PlayerId]map[Resource]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byPlayer: make(map[session.PlayerId]map[Resource]int),
	}
}

// getOrCreate returns the balance map for a player, seeding the starter
// grant for players the ledger has never seen.
func (l *Ledger) getOrCreate(pid session.PlayerId) map[Resource]int {
	inv, ok := l.byPlayer[pid]
	if !ok {
		inv = map[Resource]int{StarterResource: StarterQty}
		l.byPlayer[pid] = inv
	}
	return inv
}

// TryConsume removes qty units of a resource if the player holds at least
// that many. qty <= 0 always succeeds as a no-op.
func (l *Ledger) TryConsume(pid session.PlayerId, res Resource, qty int) bool {
	if qty <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	inv := l.getOrCreate(pid)
	if inv[res] < qty {
		return false
	}

	inv[res] -= qty
	if inv[res] == 0 {
		delete(inv, res) // absent key means zero
	}
	return true
}

// Grant adds qty units of a resource. qty <= 0 is a no-op.
func (l *Ledger) Grant(pid session.PlayerId, res Resource, qty int) {
	if qty <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.getOrCreate(pid)[res] += qty
}

// Balance returns the player's current holding of a resource.
func (l *Ledger) Balance(pid session.PlayerId, res Resource) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getOrCreate(pid)[res]
}

// Snapshot returns the player's balances in wire form, seeding the
// starter inventory for new players.
func (l *Ledger) Snapshot(pid session.PlayerId) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	inv := l.getOrCreate(pid)
	out := make(map[string]int, len(inv))
	for res, qty := range inv {
		out[string(res)] = qty
	}
	return out
}
