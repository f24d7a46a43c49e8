// Package kvclient is the client-side wiring (C8): a thin public Conn/
// Stream wrapper around a dialed muxsession.ClientSession, modeled on
// pkg/websocket/client.go's split between a small public surface and the
// internal connection it drives.
package kvclient

import (
	"fmt"
	"net"

	"odin-kv-server/internal/kverr"
	"odin-kv-server/internal/muxsession"
	"odin-kv-server/internal/stream"
	"odin-kv-server/internal/wire"
)

// Conn is one dialed, multiplexed connection to a KV server. Callers open
// one Stream per request/response exchange or per subscription.
type Conn struct {
	sess *muxsession.ClientSession
}

// Dial connects to addr and negotiates the multiplexed session.
func Dial(addr string, cfg muxsession.Config) (*Conn, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, kverr.IO(fmt.Errorf("dial %s: %w", addr, err))
	}
	sess, err := muxsession.NewClient(nc, cfg)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return &Conn{sess: sess}, nil
}

func (c *Conn) Close() error {
	return c.sess.Close()
}

// OpenStream opens a fresh multiplexed stream for one exchange.
func (c *Conn) OpenStream() (*Stream, error) {
	rwc, err := c.sess.OpenStream()
	if err != nil {
		return nil, err
	}
	return &Stream{rs: stream.NewResponseStream(rwc)}, nil
}

// Stream drives exactly one CommandRequest/CommandResponse(s) exchange
// over one multiplexed stream.
type Stream struct {
	rs *stream.ResponseStream
}

func (s *Stream) Close() error {
	return s.rs.Close()
}

// ExecuteUnary sends one KV request and reads back its single response.
// Callers should only pass request kinds that produce exactly one
// response (everything but Subscribe); use ExecuteStreaming for that.
func (s *Stream) ExecuteUnary(req wire.CommandRequest) (wire.CommandResponse, error) {
	if err := s.rs.Send(req); err != nil {
		return wire.CommandResponse{}, err
	}
	return s.rs.Recv()
}

// StreamResult is the receive side of a Subscribe call: ID is read from
// the id-announce frame the server sends first, and Recv yields every
// subsequent published value until the server sends its exit frame.
type StreamResult struct {
	ID     uint32
	stream *Stream
}

// Recv blocks for the next published frame. ok is false once the
// subscription has ended (an exit frame was received or the stream
// failed); err is non-nil only on an actual transport/decode failure.
func (r *StreamResult) Recv() (wire.CommandResponse, bool, error) {
	resp, err := r.stream.rs.Recv()
	if err != nil {
		return wire.CommandResponse{}, false, err
	}
	if resp.Exit {
		return resp, false, nil
	}
	return resp, true, nil
}

func (r *StreamResult) Close() error {
	return r.stream.Close()
}

// ExecuteStreaming sends a Subscribe request and reads the id-announce
// frame, returning a StreamResult whose ID came from that exact frame (so
// it can never diverge from what the broadcaster assigned).
func (s *Stream) ExecuteStreaming(req wire.CommandRequest) (*StreamResult, error) {
	if err := s.rs.Send(req); err != nil {
		return nil, err
	}
	announce, err := s.rs.Recv()
	if err != nil {
		return nil, err
	}
	if announce.Exit || len(announce.Values) == 0 {
		return nil, kverr.Decode(fmt.Errorf("subscribe: missing id-announce frame"))
	}
	id, ok := announce.Values[0].AsInt64()
	if !ok {
		return nil, kverr.Convert("subscribe: id-announce value is not an integer")
	}
	return &StreamResult{ID: uint32(id), stream: s}, nil
}

// Unsubscribe sends an Unsubscribe request over a fresh stream and waits
// for its single exit response.
func (c *Conn) Unsubscribe(topic string, id uint32) error {
	st, err := c.OpenStream()
	if err != nil {
		return err
	}
	defer st.Close()
	_, err = st.ExecuteUnary(wire.NewUnsubscribe(topic, id))
	return err
}

// Publish sends a Publish request over a fresh stream and waits for its
// single exit response.
func (c *Conn) Publish(topic string, data []wire.Value) error {
	st, err := c.OpenStream()
	if err != nil {
		return err
	}
	defer st.Close()
	_, err = st.ExecuteUnary(wire.NewPublish(topic, data))
	return err
}
