// Package bridge implements the NATS fan-in bridge (C10): a one-way,
// best-effort forwarder from external NATS subjects into local broadcaster
// topics, for operational tooling rather than cluster replication. It is
// disabled unless the bridge config names at least one {subject, topic}
// pair, grounded in go-server/pkg/nats/client.go's reconnect/jitter/ping
// configuration and connection-event handler idiom.
package bridge

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"odin-kv-server/internal/broker"
	"odin-kv-server/internal/config"
	"odin-kv-server/internal/wire"
)

// Bridge owns one NATS connection and forwards each configured subject's
// messages into its paired broadcaster topic as a single-value Publish.
type Bridge struct {
	conn        *nats.Conn
	broadcaster *broker.Broadcaster
	logger      *zap.Logger
	subs        []*nats.Subscription
}

// Connect dials NATS and subscribes to every configured subject. Callers
// should only invoke this when cfg.BridgeEnabled() is true.
func Connect(cfg config.BridgeConfig, broadcaster *broker.Broadcaster, logger *zap.Logger) (*Bridge, error) {
	b := &Bridge{broadcaster: broadcaster, logger: logger}

	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.MaxPingsOutstanding(3),
		nats.PingInterval(20 * time.Second),
		nats.ConnectHandler(b.onConnect),
		nats.DisconnectErrHandler(b.onDisconnect),
		nats.ReconnectHandler(b.onReconnect),
		nats.ErrorHandler(b.onError),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("bridge: connect to NATS: %w", err)
	}
	b.conn = conn

	for _, pair := range cfg.Subjects {
		topic := pair.Topic
		sub, err := conn.Subscribe(pair.Subject, func(msg *nats.Msg) {
			b.broadcaster.Publish(topic, wire.OkValues([]wire.Value{wire.BinaryValue(msg.Data)}))
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("bridge: subscribe to %s: %w", pair.Subject, err)
		}
		b.subs = append(b.subs, sub)
		logger.Info("bridge subscribed", zap.String("subject", pair.Subject), zap.String("topic", topic))
	}

	return b, nil
}

func (b *Bridge) Close() {
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}

func (b *Bridge) onConnect(conn *nats.Conn) {
	b.logger.Info("bridge connected to NATS", zap.String("url", conn.ConnectedUrl()))
}

func (b *Bridge) onDisconnect(_ *nats.Conn, err error) {
	if err != nil {
		b.logger.Warn("bridge disconnected from NATS", zap.Error(err))
	}
}

func (b *Bridge) onReconnect(conn *nats.Conn) {
	b.logger.Info("bridge reconnected to NATS", zap.String("url", conn.ConnectedUrl()))
}

func (b *Bridge) onError(_ *nats.Conn, _ *nats.Subscription, err error) {
	b.logger.Error("bridge NATS error", zap.Error(err))
}
