package player

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pixil98/go-worldserv/internal/game"
	"github.com/pixil98/go-worldserv/internal/inventory"
	"github.com/pixil98/go-worldserv/internal/session"
)

// Subscriber registers a handler for a delivery subject and returns an
// unsubscribe function. Satisfied by messaging.NatsServer.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Manager runs the per-connection message loop for every accepted
// connection and owns the shared registries the handlers touch.
type Manager struct {
	sessions *session.Registry
	ledger   *inventory.Ledger
	world    *game.WorldService
	msgs     Subscriber
}

// NewManager wires the connection dispatcher over the shared registries.
func NewManager(sessions *session.Registry, ledger *inventory.Ledger, world *game.WorldService, msgs Subscriber) *Manager {
	return &Manager{
		sessions: sessions,
		ledger:   ledger,
		world:    world,
		msgs:     msgs,
	}
}

// RunSession serves one connection until end-of-stream, a fatal error,
// or context cancellation. Cleanup (session removal, subscription
// pruning) runs on every exit path exactly once, including for
// connections that never completed a handshake and for panicking
// handlers; a connection can take down itself, never the process.
func (m *Manager) RunSession(ctx context.Context, rw io.ReadWriter) (err error) {
	c := &conn{
		m:      m,
		rw:     rw,
		connID: uuid.NewString(),
		msgs:   make(chan []byte, deliveryBuffer),
	}

	slog.InfoContext(ctx, "client connected", "conn_id", c.connID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("connection handler panic: %v", r)
		}

		if c.unsub != nil {
			c.unsub()
		}
		if sess := m.sessions.RemoveByConn(c.connID); sess != nil {
			m.world.OnDisconnect(sess.PlayerID)
			slog.InfoContext(ctx, "client disconnected",
				"conn_id", c.connID,
				"player_id", sess.PlayerID,
				"active", m.sessions.Count(),
			)
		} else {
			slog.InfoContext(ctx, "client disconnected",
				"conn_id", c.connID,
				"active", m.sessions.Count(),
			)
		}
	}()

	return c.run(ctx)
}
