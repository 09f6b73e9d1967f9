package game

import (
	"context"
	"log/slog"

	"github.com/pixil98/go-worldserv/internal/edits"
	"github.com/pixil98/go-worldserv/internal/session"
	"github.com/pixil98/go-worldserv/internal/world"
)

// StatsReporter periodically logs server occupancy: active sessions,
// resident cache entries, and subscription index sizes. Driven by the
// tick driver.
type StatsReporter struct {
	sessions *session.Registry
	view     *world.View
	edits    *edits.Registry
	world    *WorldService
}

func NewStatsReporter(sessions *session.Registry, view *world.View, reg *edits.Registry, ws *WorldService) *StatsReporter {
	return &StatsReporter{
		sessions: sessions,
		view:     view,
		edits:    reg,
		world:    ws,
	}
}

func (r *StatsReporter) Tick(ctx context.Context) error {
	subChunks, subPlayers := r.world.Stats()
	slog.InfoContext(ctx, "world stats",
		"sessions", r.sessions.Count(),
		"terrain_chunks", r.view.ResidentChunks(),
		"edit_chunks", r.edits.ResidentChunks(),
		"subscribed_chunks", subChunks,
		"subscribed_players", subPlayers,
	)
	return nil
}
