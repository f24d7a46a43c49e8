// Package stream implements the generic duplex message stream (C3): a
// thin wrapper pairing one smux-multiplexed connection with the frame
// codec, so callers read/write typed messages instead of raw bytes.
package stream

import (
	"io"
	"sync"

	"odin-kv-server/internal/frame"
	"odin-kv-server/internal/wire"
)

// Decoder unmarshals a raw frame payload into In.
type Decoder[In any] func([]byte) (In, error)

// Stream pairs an io.ReadWriteCloser with frame encode/decode for a fixed
// request (Out, written) / response (In, read) message pair. Writes are
// serialized with a mutex since smux streams, like the underlying Rust
// yamux streams, are safe for one reader and one writer concurrently but
// not for concurrent writers.
type Stream[In, Out any] struct {
	rwc     io.ReadWriteCloser
	decode  Decoder[In]
	writeMu sync.Mutex
}

// New wraps rwc for typed duplex messaging, using decode to turn decoded
// frame bytes into In values.
func New[In, Out any](rwc io.ReadWriteCloser, decode Decoder[In]) *Stream[In, Out] {
	return &Stream[In, Out]{rwc: rwc, decode: decode}
}

// Recv blocks until the next frame arrives and decodes it as In.
func (s *Stream[In, Out]) Recv() (In, error) {
	var zero In
	raw, err := frame.Decode(s.rwc)
	if err != nil {
		return zero, err
	}
	return s.decode(raw)
}

// Send encodes out as a frame, serialized against concurrent Send calls on
// the same Stream.
func (s *Stream[In, Out]) Send(out frame.Payload) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return frame.EncodePayload(s.rwc, out)
}

// Close closes the underlying connection.
func (s *Stream[In, Out]) Close() error {
	return s.rwc.Close()
}

// RequestStream is the server-side direction: reads CommandRequest,
// writes CommandResponse.
type RequestStream = Stream[wire.CommandRequest, wire.CommandResponse]

// ResponseStream is the client-side direction: reads CommandResponse,
// writes CommandRequest.
type ResponseStream = Stream[wire.CommandResponse, wire.CommandRequest]

// NewRequestStream wraps rwc for server-side request/response handling.
func NewRequestStream(rwc io.ReadWriteCloser) *RequestStream {
	return New[wire.CommandRequest, wire.CommandResponse](rwc, wire.UnmarshalCommandRequest)
}

// NewResponseStream wraps rwc for client-side request/response handling.
func NewResponseStream(rwc io.ReadWriteCloser) *ResponseStream {
	return New[wire.CommandResponse, wire.CommandRequest](rwc, wire.UnmarshalCommandResponse)
}
