package player

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/pixil98/go-worldserv/internal/wire"
)

// deliveryBuffer bounds broadcast messages queued for a slow connection.
// The delivery handler must never block the broker; on overflow the
// payload is dropped and the client resyncs from its next snapshot.
const deliveryBuffer = 64

// conn is the state of one connection's message loop. All writes to rw
// happen on the loop goroutine, so no write lock is needed.
type conn struct {
	m      *Manager
	rw     io.ReadWriter
	connID string

	msgs  chan []byte
	unsub func()
}

// run is the connection's message loop: one goroutine scans inbound
// lines while the loop selects over inbound messages and broker
// deliveries. It suspends only at I/O boundaries, never while holding a
// registry lock.
func (c *conn) run(ctx context.Context) error {
	inputChan := make(chan string)
	inputErrChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(c.rw)
		scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
		for scanner.Scan() {
			// The loop may have exited already; don't strand this
			// goroutine on a channel nobody drains.
			select {
			case inputChan <- scanner.Text():
			case <-done:
				return
			}
		}
		inputErrChan <- scanner.Err()
		close(inputChan)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case data := <-c.msgs:
			if _, err := c.rw.Write(data); err != nil {
				return err
			}

		case line, ok := <-inputChan:
			if !ok {
				// End of stream (connection lost or closed cleanly).
				select {
				case err := <-inputErrChan:
					return err
				default:
					return nil
				}
			}

			if strings.TrimSpace(line) == "" {
				continue
			}

			if err := c.handle(ctx, []byte(line)); err != nil {
				return err
			}
		}
	}
}

// maxLineBytes caps one inbound message. Anything bigger is not a sane
// protocol message.
const maxLineBytes = 256 * 1024

// handle routes one inbound message. A returned error is fatal to the
// connection; protocol-level problems are answered with an error
// message and the connection stays open.
func (c *conn) handle(ctx context.Context, line []byte) error {
	c.m.sessions.Touch(c.connID)

	in, err := wire.Decode(line)
	if err != nil {
		switch {
		case errors.Is(err, wire.ErrUnknownType):
			slog.WarnContext(ctx, "unknown message", "conn_id", c.connID, "type", in.Type)
			return c.send(wire.NewError(wire.ReasonUnknownMessage))
		default:
			slog.WarnContext(ctx, "bad json", "conn_id", c.connID, "error", err)
			return c.send(wire.NewError(wire.ReasonBadJSON))
		}
	}

	switch in.Type {
	case wire.TypeRequestID:
		return c.handleRequestID(ctx)
	case wire.TypeRequestInventory:
		return c.handleRequestInventory()
	case wire.TypeSubChunk:
		return c.handleSubChunk(in)
	case wire.TypeUnsubChunk:
		return c.handleUnsubChunk(in)
	case wire.TypeRequestChunkEdits:
		return c.handleRequestChunkEdits(in)
	case wire.TypePlaceObject:
		return c.handlePlaceObject(ctx, in)
	case wire.TypeRemoveObject:
		return c.handleRemoveObject(ctx, in)
	default:
		return c.send(wire.NewError(wire.ReasonUnknownMessage))
	}
}

// send writes one outbound message. Write failures are fatal to the
// connection.
func (c *conn) send(v any) error {
	data, err := wire.Encode(v)
	if err != nil {
		return err
	}
	_, err = c.rw.Write(data)
	return err
}
