// Package server implements the server-side wiring (C8): a net.Listener
// accept loop that upgrades each accepted connection into a multiplexed
// session and, for every stream the session accepts, drives one
// request/response (or subscribe/publish) exchange through the dispatcher.
// Directly modeled on go-server/internal/server/server.go's
// Start/goroutine-per-concern structure and
// go-server-3/internal/transport/server.go's
// accept-loop-with-temporary-error-retry idiom.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"odin-kv-server/internal/config"
	"odin-kv-server/internal/dispatch"
	"odin-kv-server/internal/frame"
	"odin-kv-server/internal/metrics"
	"odin-kv-server/internal/muxsession"
	"odin-kv-server/internal/stream"
	"odin-kv-server/internal/wire"
)

// Server owns the KV/pub-sub TCP listener and the separate HTTP
// observability listener.
type Server struct {
	cfg        config.Config
	logger     *zap.Logger
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Registry

	listener   net.Listener
	httpServer *http.Server
	wg         sync.WaitGroup
}

func New(cfg config.Config, logger *zap.Logger, dispatcher *dispatch.Dispatcher, registry *metrics.Registry) *Server {
	return &Server{cfg: cfg, logger: logger, dispatcher: dispatcher, metrics: registry}
}

// Start opens the KV listener and, if metrics are enabled, the HTTP
// observability listener, then returns immediately; both loops run in
// background goroutines tracked by s.wg.
func (s *Server) Start(ctx context.Context) error {
	if s.listener != nil {
		return errors.New("server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.logger.Info("kv server listening", zap.String("addr", addr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()

	if s.cfg.Metrics.Enabled {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.runHTTPServer(ctx); err != nil {
				s.logger.Error("observability http server error", zap.Error(err))
			}
		}()
	}

	return nil
}

// Stop closes the KV listener and waits for every accept/session/stream
// goroutine this Server spawned to return.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("accept error", zap.Error(err))
			return
		}

		s.metrics.ConnectionsAccepted.Inc()
		s.metrics.ConnectionsActive.Inc()

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer s.metrics.ConnectionsActive.Dec()
			s.handleConnection(ctx, c)
		}(conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sess, err := muxsession.NewServer(conn, muxsession.Config{})
	if err != nil {
		s.logger.Warn("session handshake failed", zap.Error(err))
		return
	}
	defer sess.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sess.Serve(func(rwc io.ReadWriteCloser) {
			s.wg.Add(1)
			defer s.wg.Done()
			s.handleStream(rwc)
		}); err != nil {
			s.logger.Debug("session closed", zap.Error(err))
		}
	}()

	select {
	case <-ctx.Done():
		_ = sess.Close()
		<-done
	case <-done:
	}
}

// handleStream drives one request/response exchange (or, for Subscribe,
// the subscription's full lifetime) over one multiplexed stream: read one
// CommandRequest, dispatch it, then write every CommandResponse the
// resulting ResponseSource yields, calling NotifyAfterSend once per frame
// actually written to the wire.
func (s *Server) handleStream(rwc io.ReadWriteCloser) {
	s.metrics.StreamsActive.Inc()
	defer s.metrics.StreamsActive.Dec()
	defer rwc.Close()

	st := stream.NewRequestStream(rwc)

	cmd, err := st.Recv()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.logger.Debug("stream recv error", zap.Error(err))
		}
		return
	}

	if raw, err := cmd.MarshalWire(); err == nil {
		s.metrics.FrameBytesIn.Add(float64(len(raw)))
	}

	op := opName(cmd.Kind)
	started := time.Now()
	source := s.dispatcher.Execute(cmd)
	s.metrics.OpsTotal.WithLabelValues(op).Inc()
	s.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())

	for {
		resp, ok := source.Next()
		if !ok {
			return
		}

		if err := st.Send(resp); err != nil {
			s.logger.Debug("stream send error", zap.Error(err))
			return
		}
		s.dispatcher.NotifyAfterSend()

		if raw, err := resp.MarshalWire(); err == nil {
			s.metrics.FrameBytesOut.Add(float64(len(raw)))
			if len(raw) > frame.CompressionLimit {
				s.metrics.FrameCompressedHits.Inc()
			}
		}

		if resp.Exit {
			return
		}
	}
}

func opName(k wire.RequestKind) string {
	switch k {
	case wire.ReqHget:
		return "hget"
	case wire.ReqHmget:
		return "hmget"
	case wire.ReqHset:
		return "hset"
	case wire.ReqHmset:
		return "hmset"
	case wire.ReqHexists:
		return "hexists"
	case wire.ReqHmexists:
		return "hmexists"
	case wire.ReqHdelete:
		return "hdelete"
	case wire.ReqHmdelete:
		return "hmdelete"
	case wire.ReqHgetall:
		return "hgetall"
	case wire.ReqSubscribe:
		return "subscribe"
	case wire.ReqUnsubscribe:
		return "unsubscribe"
	case wire.ReqPublish:
		return "publish"
	default:
		return "unknown"
	}
}

// runHTTPServer serves /health and /metrics on the configured listen
// address until ctx is canceled, following
// go-server-3/cmd/odin-ws/main.go's runHTTPServer shape.
func (s *Server) runHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	mux.Handle("/metrics", s.metrics.Handler())

	s.httpServer = &http.Server{
		Addr:         s.cfg.Metrics.ListenAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("observability http server starting", zap.String("addr", s.cfg.Metrics.ListenAddr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("observability http server shutdown error", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
