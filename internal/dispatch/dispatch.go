// Package dispatch implements the command dispatcher (C6): routing each
// decoded CommandRequest to either a unary KV operation or, via a
// zero-value CommandResponse sentinel, a streaming pub/sub operation, with
// four ordered hook kinds observed along the way.
package dispatch

import (
	"odin-kv-server/internal/broker"
	"odin-kv-server/internal/kverr"
	"odin-kv-server/internal/storage"
	"odin-kv-server/internal/wire"
)

// ResponseSource yields the one or more CommandResponse frames that answer
// a single CommandRequest: exactly one for every KV operation, and an
// unbounded sequence (terminated by an Exit frame) for Subscribe.
type ResponseSource interface {
	Next() (wire.CommandResponse, bool)
}

type onceSource struct {
	resp wire.CommandResponse
	done bool
}

func (s *onceSource) Next() (wire.CommandResponse, bool) {
	if s.done {
		return wire.CommandResponse{}, false
	}
	s.done = true
	return s.resp, true
}

type subscriptionSource struct {
	sub *broker.Subscription
}

func (s *subscriptionSource) Next() (wire.CommandResponse, bool) {
	return s.sub.Recv()
}

// Dispatcher owns the storage backend, the broadcaster, and the four hook
// lists (on_received, on_executed, on_before_send, on_after_send)
// mirroring the upstream ServiceInner builder.
type Dispatcher struct {
	store       storage.Storage
	broadcaster *broker.Broadcaster

	onReceived   []func(*wire.CommandRequest)
	onExecuted   []func(*wire.CommandResponse)
	onBeforeSend []func(*wire.CommandResponse)
	onAfterSend  []func()
}

func New(store storage.Storage, broadcaster *broker.Broadcaster) *Dispatcher {
	return &Dispatcher{store: store, broadcaster: broadcaster}
}

func (d *Dispatcher) OnReceived(f func(*wire.CommandRequest)) *Dispatcher {
	d.onReceived = append(d.onReceived, f)
	return d
}

func (d *Dispatcher) OnExecuted(f func(*wire.CommandResponse)) *Dispatcher {
	d.onExecuted = append(d.onExecuted, f)
	return d
}

func (d *Dispatcher) OnBeforeSend(f func(*wire.CommandResponse)) *Dispatcher {
	d.onBeforeSend = append(d.onBeforeSend, f)
	return d
}

// OnAfterSend registers a hook the server's per-stream write loop invokes
// once per response frame actually written to the wire, after the write
// succeeds. Unlike the upstream ServiceInner (which defines on_after_send
// but never calls it), this hook kind is observably exercised by calling
// NotifyAfterSend from that loop.
func (d *Dispatcher) OnAfterSend(f func()) *Dispatcher {
	d.onAfterSend = append(d.onAfterSend, f)
	return d
}

// NotifyAfterSend runs the on_after_send hooks; called by the server once
// per frame written, never by Execute itself.
func (d *Dispatcher) NotifyAfterSend() {
	for _, f := range d.onAfterSend {
		f()
	}
}

// Execute runs the four-step hook sequence (received -> KV-or-sentinel ->
// executed -> before-send) and, if the KV step produced the zero-value
// sentinel, redispatches to the streaming (pub/sub) path.
func (d *Dispatcher) Execute(cmd wire.CommandRequest) ResponseSource {
	for _, f := range d.onReceived {
		f(&cmd)
	}

	res := d.dispatchUnary(cmd)

	for _, f := range d.onExecuted {
		f(&res)
	}
	for _, f := range d.onBeforeSend {
		f(&res)
	}

	if res.IsZero() {
		return d.dispatchStream(cmd)
	}
	return &onceSource{resp: res}
}

func (d *Dispatcher) dispatchUnary(cmd wire.CommandRequest) wire.CommandResponse {
	switch cmd.Kind {
	case wire.ReqHget:
		return d.hget(cmd.Hget)
	case wire.ReqHmget:
		return d.hmget(cmd.Hmget)
	case wire.ReqHset:
		return d.hset(cmd.Hset)
	case wire.ReqHmset:
		return d.hmset(cmd.Hmset)
	case wire.ReqHexists:
		return d.hexists(cmd.Hexists)
	case wire.ReqHmexists:
		return d.hmexists(cmd.Hmexists)
	case wire.ReqHdelete:
		return d.hdelete(cmd.Hdelete)
	case wire.ReqHmdelete:
		return d.hmdelete(cmd.Hmdelete)
	case wire.ReqHgetall:
		return d.hgetall(cmd.Hgetall)
	case wire.ReqSubscribe, wire.ReqUnsubscribe, wire.ReqPublish:
		return wire.CommandResponse{}
	default:
		return wire.FromError(kverr.InvalidCommand("unset request kind"))
	}
}

func (d *Dispatcher) dispatchStream(cmd wire.CommandRequest) ResponseSource {
	switch cmd.Kind {
	case wire.ReqSubscribe:
		sub := d.broadcaster.Subscribe(cmd.Subscribe.Topic)
		return &subscriptionSource{sub: sub}
	case wire.ReqUnsubscribe:
		d.broadcaster.Unsubscribe(cmd.Unsubscribe.Topic, cmd.Unsubscribe.ID)
		return &onceSource{resp: wire.ExitResponse()}
	case wire.ReqPublish:
		_ = d.broadcaster.Publish(cmd.Publish.Topic, wire.OkValues(cmd.Publish.Data))
		return &onceSource{resp: wire.ExitResponse()}
	default:
		return &onceSource{resp: wire.FromError(kverr.InvalidCommand("unreachable stream dispatch"))}
	}
}

func (d *Dispatcher) hget(req wire.Hget) wire.CommandResponse {
	v, err := d.store.Get(req.Table, req.Key)
	if err != nil {
		return wire.FromError(err)
	}
	if v.IsAbsent() {
		return wire.FromError(kverr.NotFound(req.Table, req.Key))
	}
	return wire.OkValues([]wire.Value{v})
}

func (d *Dispatcher) hmget(req wire.Hmget) wire.CommandResponse {
	values := make([]wire.Value, 0, len(req.Keys))
	for _, key := range req.Keys {
		v, err := d.store.Get(req.Table, key)
		if err != nil || v.IsAbsent() {
			values = append(values, wire.Absent())
			continue
		}
		values = append(values, v)
	}
	return wire.OkValues(values)
}

func (d *Dispatcher) hset(req wire.Hset) wire.CommandResponse {
	prev, err := d.store.Set(req.Table, req.Pair.Key, req.Pair.Value)
	if err != nil {
		return wire.FromError(err)
	}
	return wire.OkValues([]wire.Value{prev})
}

func (d *Dispatcher) hmset(req wire.Hmset) wire.CommandResponse {
	values := make([]wire.Value, 0, len(req.Pairs))
	for _, pair := range req.Pairs {
		prev, err := d.store.Set(req.Table, pair.Key, pair.Value)
		if err != nil {
			values = append(values, wire.Absent())
			continue
		}
		values = append(values, prev)
	}
	return wire.OkValues(values)
}

func (d *Dispatcher) hexists(req wire.Hexists) wire.CommandResponse {
	ok, err := d.store.Contains(req.Table, req.Key)
	if err != nil {
		ok = false
	}
	return wire.OkValues([]wire.Value{wire.BoolValue(ok)})
}

func (d *Dispatcher) hmexists(req wire.Hmexists) wire.CommandResponse {
	values := make([]wire.Value, 0, len(req.Keys))
	for _, key := range req.Keys {
		ok, err := d.store.Contains(req.Table, key)
		if err != nil {
			ok = false
		}
		values = append(values, wire.BoolValue(ok))
	}
	return wire.OkValues(values)
}

func (d *Dispatcher) hdelete(req wire.Hdelete) wire.CommandResponse {
	prev, err := d.store.Delete(req.Table, req.Key)
	if err != nil {
		return wire.FromError(err)
	}
	return wire.OkValues([]wire.Value{prev})
}

func (d *Dispatcher) hmdelete(req wire.Hmdelete) wire.CommandResponse {
	values := make([]wire.Value, 0, len(req.Keys))
	for _, key := range req.Keys {
		prev, err := d.store.Delete(req.Table, key)
		if err != nil {
			values = append(values, wire.Absent())
			continue
		}
		values = append(values, prev)
	}
	return wire.OkValues(values)
}

func (d *Dispatcher) hgetall(req wire.Hgetall) wire.CommandResponse {
	pairs, err := d.store.GetAll(req.Table)
	if err != nil {
		return wire.FromError(err)
	}
	return wire.OkPairs(pairs)
}
