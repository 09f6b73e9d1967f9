// Package wire defines the newline-delimited JSON protocol. Every
// message is one UTF-8 JSON object per line carrying a string
// discriminator field "t".
package wire

import (
	"github.com/pixil98/go-worldserv/internal/edits"
	"github.com/pixil98/go-worldserv/internal/session"
)

// Message type discriminators.
const (
	// Client -> server.
	TypeRequestID         = "request_id"
	TypeRequestInventory  = "request_inventory"
	TypeSubChunk          = "sub_chunk"
	TypeUnsubChunk        = "unsub_chunk"
	TypeRequestChunkEdits = "request_chunk_edits"
	TypePlaceObject       = "place_object"
	TypeRemoveObject      = "remove_object"

	// Server -> client.
	TypeAssignID     = "assign_id"
	TypeInventory    = "inventory"
	TypeChunkEdits   = "chunk_edits"
	TypeEditApplied  = "edit_applied"
	TypeUnsubChunkOK = "unsub_chunk_ok"
	TypeError        = "error"
)

// Error reasons.
const (
	ReasonBadJSON               = "bad_json"
	ReasonUnknownMessage        = "unknown_message"
	ReasonNoPlayerID            = "no_player_id"
	ReasonBadChunkCoords        = "bad_chunk_coords"
	ReasonBadObject             = "bad_object"
	ReasonInsufficientResources = "insufficient_resources"
	ReasonPersistFailed         = "persist_failed"
)

// ChunkCoordBound limits accepted chunk coordinates. The world is
// unbounded in principle; this bound only rejects garbage input before
// it becomes a cache key.
const ChunkCoordBound = 1 << 20

// ValidChunkCoords reports whether a chunk coordinate pair is within the
// accepted range.
func ValidChunkCoords(cx, cy int) bool {
	return cx >= -ChunkCoordBound && cx <= ChunkCoordBound &&
		cy >= -ChunkCoordBound && cy <= ChunkCoordBound
}

// Client -> server messages.

type SubChunk struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
}

type UnsubChunk struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
}

type RequestChunkEdits struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
}

type PlaceObject struct {
	WX  int    `json:"wx"`
	WY  int    `json:"wy"`
	Obj string `json:"obj"`
	Rot int    `json:"rot"`
}

type RemoveObject struct {
	WX int `json:"wx"`
	WY int `json:"wy"`
}

// Server -> client messages. The T field is set by the constructors so a
// handler can't send a body with a missing discriminator.

type AssignID struct {
	T        string           `json:"t"`
	PlayerID session.PlayerId `json:"player_id"`
}

func NewAssignID(pid session.PlayerId) AssignID {
	return AssignID{T: TypeAssignID, PlayerID: pid}
}

type Inventory struct {
	T        string           `json:"t"`
	PlayerID session.PlayerId `json:"player_id"`
	Items    map[string]int   `json:"items"`
}

func NewInventory(pid session.PlayerId, items map[string]int) Inventory {
	return Inventory{T: TypeInventory, PlayerID: pid, Items: items}
}

type ChunkEdits struct {
	T     string            `json:"t"`
	CX    int               `json:"cx"`
	CY    int               `json:"cy"`
	Edits []edits.Placement `json:"edits"`
}

func NewChunkEdits(cx, cy int, placements []edits.Placement) ChunkEdits {
	if placements == nil {
		placements = []edits.Placement{} // "edits":[] rather than null
	}
	return ChunkEdits{T: TypeChunkEdits, CX: cx, CY: cy, Edits: placements}
}

type EditApplied struct {
	T string `json:"t"`
	edits.AppliedEdit
}

func NewEditApplied(applied edits.AppliedEdit) EditApplied {
	return EditApplied{T: TypeEditApplied, AppliedEdit: applied}
}

type UnsubChunkOK struct {
	T  string `json:"t"`
	CX int    `json:"cx"`
	CY int    `json:"cy"`
}

func NewUnsubChunkOK(cx, cy int) UnsubChunkOK {
	return UnsubChunkOK{T: TypeUnsubChunkOK, CX: cx, CY: cy}
}

type Error struct {
	T      string `json:"t"`
	Reason string `json:"reason"`
}

func NewError(reason string) Error {
	return Error{T: TypeError, Reason: reason}
}
