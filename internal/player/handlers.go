package player

import (
	"context"
	"log/slog"

	"github.com/pixil98/go-worldserv/internal/edits"
	"github.com/pixil98/go-worldserv/internal/inventory"
	"github.com/pixil98/go-worldserv/internal/messaging"
	"github.com/pixil98/go-worldserv/internal/session"
	"github.com/pixil98/go-worldserv/internal/wire"
	"github.com/pixil98/go-worldserv/internal/world"
)

// handleRequestID performs the handshake: assign_id then inventory, as
// two sequential messages. Idempotent — a retried handshake gets the
// same id back.
func (c *conn) handleRequestID(ctx context.Context) error {
	sess, created, err := c.m.sessions.GetOrAssign(c.connID)
	if err != nil {
		return err
	}

	if created {
		// Bind this connection to its delivery subject before anything
		// can be broadcast at it.
		unsub, err := c.m.msgs.Subscribe(messaging.PlayerSubject(sess.PlayerID), c.deliver)
		if err != nil {
			return err
		}
		c.unsub = unsub

		slog.InfoContext(ctx, "assigned player id",
			"conn_id", c.connID,
			"player_id", sess.PlayerID,
			"active", c.m.sessions.Count(),
		)
	}

	if err := c.send(wire.NewAssignID(sess.PlayerID)); err != nil {
		return err
	}
	return c.send(wire.NewInventory(sess.PlayerID, c.m.ledger.Snapshot(sess.PlayerID)))
}

// deliver queues one broker payload for the loop goroutine to write.
// Called on the broker's goroutine; it must not block.
func (c *conn) deliver(data []byte) {
	select {
	case c.msgs <- data:
	default:
		slog.Warn("dropping delivery to slow connection", "conn_id", c.connID)
	}
}

func (c *conn) handleRequestInventory() error {
	pid, ok := c.m.sessions.PlayerFor(c.connID)
	if !ok {
		return c.send(wire.NewError(wire.ReasonNoPlayerID))
	}
	return c.send(wire.NewInventory(pid, c.m.ledger.Snapshot(pid)))
}

func (c *conn) handleSubChunk(in wire.Inbound) error {
	pid, ok := c.m.sessions.PlayerFor(c.connID)
	if !ok {
		return c.send(wire.NewError(wire.ReasonNoPlayerID))
	}

	var req wire.SubChunk
	if err := in.Bind(&req); err != nil {
		return c.send(wire.NewError(wire.ReasonBadJSON))
	}
	if !wire.ValidChunkCoords(req.CX, req.CY) {
		return c.send(wire.NewError(wire.ReasonBadChunkCoords))
	}

	snap, err := c.m.world.Subscribe(pid, world.ChunkKey{CX: req.CX, CY: req.CY})
	if err != nil {
		return err
	}
	return c.send(wire.NewChunkEdits(req.CX, req.CY, snap))
}

func (c *conn) handleUnsubChunk(in wire.Inbound) error {
	pid, ok := c.m.sessions.PlayerFor(c.connID)
	if !ok {
		return c.send(wire.NewError(wire.ReasonNoPlayerID))
	}

	var req wire.UnsubChunk
	if err := in.Bind(&req); err != nil {
		return c.send(wire.NewError(wire.ReasonBadJSON))
	}
	if !wire.ValidChunkCoords(req.CX, req.CY) {
		return c.send(wire.NewError(wire.ReasonBadChunkCoords))
	}

	c.m.world.Unsubscribe(pid, world.ChunkKey{CX: req.CX, CY: req.CY})
	return c.send(wire.NewUnsubChunkOK(req.CX, req.CY))
}

func (c *conn) handleRequestChunkEdits(in wire.Inbound) error {
	if _, ok := c.m.sessions.PlayerFor(c.connID); !ok {
		return c.send(wire.NewError(wire.ReasonNoPlayerID))
	}

	var req wire.RequestChunkEdits
	if err := in.Bind(&req); err != nil {
		return c.send(wire.NewError(wire.ReasonBadJSON))
	}
	if !wire.ValidChunkCoords(req.CX, req.CY) {
		return c.send(wire.NewError(wire.ReasonBadChunkCoords))
	}

	snap, err := c.m.world.Snapshot(world.ChunkKey{CX: req.CX, CY: req.CY})
	if err != nil {
		return err
	}
	return c.send(wire.NewChunkEdits(req.CX, req.CY, snap))
}

// handlePlaceObject consumes one unit of the placed resource, persists
// the placement, and broadcasts it. The store write completes before
// anything is acknowledged; a persistence failure refunds the consumed
// unit and reports persist_failed instead of a phantom success.
func (c *conn) handlePlaceObject(ctx context.Context, in wire.Inbound) error {
	pid, ok := c.m.sessions.PlayerFor(c.connID)
	if !ok {
		return c.send(wire.NewError(wire.ReasonNoPlayerID))
	}

	var req wire.PlaceObject
	if err := in.Bind(&req); err != nil {
		return c.send(wire.NewError(wire.ReasonBadJSON))
	}

	res := inventory.Resource(req.Obj)
	if !res.Valid() {
		return c.send(wire.NewError(wire.ReasonBadObject))
	}
	if !c.validWorldCoords(req.WX, req.WY) {
		return c.send(wire.NewError(wire.ReasonBadChunkCoords))
	}

	if !c.m.ledger.TryConsume(pid, res, 1) {
		return c.send(wire.NewError(wire.ReasonInsufficientResources))
	}

	applied, err := c.m.world.ApplyPlace(pid, req.WX, req.WY, res, req.Rot)
	if err != nil {
		c.m.ledger.Grant(pid, res, 1) // refund the unacknowledged edit
		slog.ErrorContext(ctx, "persisting placement",
			"conn_id", c.connID, "player_id", pid, "error", err)
		return c.send(wire.NewError(wire.ReasonPersistFailed))
	}

	if err := c.ackApplied(pid, applied); err != nil {
		return err
	}
	// Inventory changed; push the new snapshot to this connection only.
	return c.send(wire.NewInventory(pid, c.m.ledger.Snapshot(pid)))
}

// handleRemoveObject deletes the placement at a tile if present,
// refunding the removed resource to the remover. Removing an empty tile
// succeeds with had_object=false.
func (c *conn) handleRemoveObject(ctx context.Context, in wire.Inbound) error {
	pid, ok := c.m.sessions.PlayerFor(c.connID)
	if !ok {
		return c.send(wire.NewError(wire.ReasonNoPlayerID))
	}

	var req wire.RemoveObject
	if err := in.Bind(&req); err != nil {
		return c.send(wire.NewError(wire.ReasonBadJSON))
	}
	if !c.validWorldCoords(req.WX, req.WY) {
		return c.send(wire.NewError(wire.ReasonBadChunkCoords))
	}

	applied, removed, err := c.m.world.ApplyRemove(pid, req.WX, req.WY)
	if err != nil {
		slog.ErrorContext(ctx, "persisting removal",
			"conn_id", c.connID, "player_id", pid, "error", err)
		return c.send(wire.NewError(wire.ReasonPersistFailed))
	}

	if err := c.ackApplied(pid, applied); err != nil {
		return err
	}

	// Refund only when this removal was the one that took the object
	// out of the world; a concurrent remover of the same tile sees
	// HadObject=false and gets nothing.
	if applied.HadObject != nil && *applied.HadObject {
		c.m.ledger.Grant(pid, removed.Obj, 1)
		return c.send(wire.NewInventory(pid, c.m.ledger.Snapshot(pid)))
	}
	return nil
}

// validWorldCoords bounds a world coordinate by the chunk it lands in,
// the same sanity bound the chunk-addressed messages enforce.
func (c *conn) validWorldCoords(wx, wy int) bool {
	key, _ := world.SplitWorld(wx, wy, c.m.world.ChunkSize())
	return wire.ValidChunkCoords(key.CX, key.CY)
}

// ackApplied makes sure the acting player observes their own edit. A
// subscriber to the edited chunk already got it through the broadcast;
// anyone editing a chunk they aren't watching gets a direct reply.
func (c *conn) ackApplied(pid session.PlayerId, applied edits.AppliedEdit) error {
	key := world.ChunkKey{CX: applied.CX, CY: applied.CY}
	for _, sub := range c.m.world.Subscribers(key) {
		if sub == pid {
			return nil
		}
	}
	return c.send(wire.NewEditApplied(applied))
}
