// Package muxsession implements the session multiplexer (C4): a thin
// wrapper over github.com/xtaci/smux, the Go analog to the upstream
// yamux-based multiplexer, letting the client open streams and the server
// accept and handle them over a single underlying connection.
package muxsession

import (
	"io"

	"github.com/xtaci/smux"

	"odin-kv-server/internal/kverr"
)

// Config mirrors smux.Config's tunable surface; zero-value fields fall
// back to smux's own defaults, matching the upstream's
// `config.unwrap_or_default()` before forcing OnRead window-update mode
// (smux's flow control already credits the peer's window as it reads
// rather than as it buffers, so no equivalent knob is needed here).
type Config struct {
	KeepAliveDisabled bool
	MaxReceiveBuffer  int
	MaxStreamBuffer   int
}

func (c Config) toSmux() *smux.Config {
	cfg := smux.DefaultConfig()
	if c.KeepAliveDisabled {
		cfg.KeepAliveDisabled = true
	}
	if c.MaxReceiveBuffer > 0 {
		cfg.MaxReceiveBuffer = c.MaxReceiveBuffer
	}
	if c.MaxStreamBuffer > 0 {
		cfg.MaxStreamBuffer = c.MaxStreamBuffer
	}
	return cfg
}

// ClientSession wraps a smux client-mode session: the caller opens
// streams, one per request/response or subscription.
type ClientSession struct {
	sess *smux.Session
}

// NewClient wraps conn as a client-mode multiplexed session.
func NewClient(conn io.ReadWriteCloser, cfg Config) (*ClientSession, error) {
	sess, err := smux.Client(conn, cfg.toSmux())
	if err != nil {
		return nil, kverr.IO(err)
	}
	return &ClientSession{sess: sess}, nil
}

// OpenStream opens a new multiplexed stream for one request/response
// exchange or one subscription's lifetime.
func (c *ClientSession) OpenStream() (io.ReadWriteCloser, error) {
	s, err := c.sess.OpenStream()
	if err != nil {
		return nil, kverr.IO(err)
	}
	return s, nil
}

func (c *ClientSession) Close() error {
	return c.sess.Close()
}

// ServerSession wraps a smux server-mode session: Serve accepts streams in
// a loop and runs handle on each in its own goroutine, directly modeled on
// go-server/internal/server/server.go's accept-loop-spawns-goroutine shape.
type ServerSession struct {
	sess *smux.Session
}

// NewServer wraps conn as a server-mode multiplexed session.
func NewServer(conn io.ReadWriteCloser, cfg Config) (*ServerSession, error) {
	sess, err := smux.Server(conn, cfg.toSmux())
	if err != nil {
		return nil, kverr.IO(err)
	}
	return &ServerSession{sess: sess}, nil
}

// Serve accepts streams until the underlying session closes, invoking
// handle(stream) in its own goroutine for each. It always returns the
// non-nil accept error that ended the loop, including when the session is
// closed via Close from another goroutine.
func (s *ServerSession) Serve(handle func(io.ReadWriteCloser)) error {
	for {
		stream, err := s.sess.AcceptStream()
		if err != nil {
			return err
		}
		go handle(stream)
	}
}

func (s *ServerSession) Close() error {
	return s.sess.Close()
}
