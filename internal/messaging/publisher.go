package messaging

import (
	"fmt"

	"github.com/pixil98/go-worldserv/internal/session"
)

// PlayerSubject is the delivery subject for one player's connection.
func PlayerSubject(pid session.PlayerId) string {
	return fmt.Sprintf("player-%d", pid)
}

// Publisher delivers a payload to a single player's connection.
type Publisher interface {
	PublishTo(pid session.PlayerId, data []byte) error
}

// PlayerPublisher publishes payloads to per-player NATS subjects. Each
// connection subscribes to its own player subject at handshake and
// writes received payloads out to the client.
type PlayerPublisher struct {
	server *NatsServer
}

// NewPlayerPublisher wraps a NatsServer for per-player message delivery.
func NewPlayerPublisher(server *NatsServer) *PlayerPublisher {
	return &PlayerPublisher{server: server}
}

func (p *PlayerPublisher) PublishTo(pid session.PlayerId, data []byte) error {
	return p.server.Publish(PlayerSubject(pid), data)
}
