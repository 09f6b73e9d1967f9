package edits

import (
	"time"

	"github.com/pixil98/go-worldserv/internal/inventory"
	"github.com/pixil98/go-worldserv/internal/session"
	"github.com/pixil98/go-worldserv/internal/world"
)

// PlacedObject is a player-caused modification layered over generated
// terrain: one per occupied local tile.
type PlacedObject struct {
	Obj       inventory.Resource
	Rot       int
	OwnerID   *session.PlayerId
	UpdatedAt float64 // seconds since epoch
}

// Placement is the wire form of a placed object at a local coordinate,
// as carried in chunk_edits snapshots.
type Placement struct {
	LX        int                `json:"lx"`
	LY        int                `json:"ly"`
	Obj       inventory.Resource `json:"obj"`
	Rot       int                `json:"rot"`
	OwnerID   *session.PlayerId  `json:"owner_id"`
	UpdatedAt float64            `json:"updated_at_s"`
}

func (p PlacedObject) toPlacement(local world.LocalKey) Placement {
	return Placement{
		LX:        local.LX,
		LY:        local.LY,
		Obj:       p.Obj,
		Rot:       p.Rot,
		OwnerID:   p.OwnerID,
		UpdatedAt: p.UpdatedAt,
	}
}

// AppliedEdit describes the outcome of a place or remove, both as the
// registry's return value and as the edit_applied broadcast body.
type AppliedEdit struct {
	Op        string             `json:"op"`
	CX        int                `json:"cx"`
	CY        int                `json:"cy"`
	LX        int                `json:"lx"`
	LY        int                `json:"ly"`
	Obj       inventory.Resource `json:"obj,omitempty"`
	Rot       *int               `json:"rot,omitempty"`
	OwnerID   session.PlayerId   `json:"owner_id"`
	UpdatedAt float64            `json:"updated_at_s"`
	HadObject *bool              `json:"had_object,omitempty"`
}

const (
	OpPlace  = "place"
	OpRemove = "remove"
)

// chunkEdits is the cache unit for the overlay of a single chunk.
type chunkEdits struct {
	tiles      map[world.LocalKey]PlacedObject
	lastAccess time.Time
}

func newChunkEdits() *chunkEdits {
	return &chunkEdits{tiles: make(map[world.LocalKey]PlacedObject)}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
