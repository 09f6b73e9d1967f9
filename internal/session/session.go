package session

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// PlayerId is an opaque player identifier. Ids are random 64-bit values,
// not sequential, so they can't be guessed or enumerated.
type PlayerId uint64

// NewPlayerId draws a fresh id from a cryptographically strong source.
// Zero is reserved as the absent value.
func NewPlayerId() (PlayerId, error) {
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("reading random bytes: %w", err)
		}
		id := PlayerId(binary.BigEndian.Uint64(buf[:]))
		if id != 0 {
			return id, nil
		}
	}
}

// Session is one connected client. A session exists from handshake to
// disconnect.
type Session struct {
	PlayerID    PlayerId
	ConnID      string
	ConnectedAt time.Time
	LastSeen    time.Time
}
