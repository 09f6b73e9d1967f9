package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadJSON marks input that isn't a JSON object. The connection stays
// open; the client gets an error/bad_json reply.
var ErrBadJSON = errors.New("malformed message")

// ErrUnknownType marks a syntactically valid message with an
// unrecognized discriminator.
var ErrUnknownType = errors.New("unknown message type")

// Inbound is one decoded client message: the discriminator plus the
// still-raw body for the per-type handler to unmarshal.
type Inbound struct {
	Type string
	raw  json.RawMessage
}

// Decode parses one line into an Inbound. The body is validated as a
// JSON object but not yet bound to a message struct.
func Decode(line []byte) (Inbound, error) {
	var probe struct {
		T *string `json:"t"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if probe.T == nil {
		return Inbound{}, fmt.Errorf("%w: missing discriminator", ErrBadJSON)
	}

	switch *probe.T {
	case TypeRequestID, TypeRequestInventory, TypeSubChunk, TypeUnsubChunk,
		TypeRequestChunkEdits, TypePlaceObject, TypeRemoveObject:
		return Inbound{Type: *probe.T, raw: json.RawMessage(line)}, nil
	default:
		return Inbound{Type: *probe.T, raw: json.RawMessage(line)}, ErrUnknownType
	}
}

// Bind unmarshals the message body into the handler's request struct.
func (in Inbound) Bind(v any) error {
	if err := json.Unmarshal(in.raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return nil
}

// Encode marshals an outbound message and terminates it with a newline.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling message: %w", err)
	}
	return append(data, '\n'), nil
}
