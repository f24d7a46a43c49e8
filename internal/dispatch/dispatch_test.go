package dispatch

import (
	"testing"

	"odin-kv-server/internal/broker"
	"odin-kv-server/internal/storage"
	"odin-kv-server/internal/wire"
)

func newTestDispatcher() *Dispatcher {
	return New(storage.NewMemoryStore(4), broker.New())
}

func drainOne(t *testing.T, src ResponseSource) wire.CommandResponse {
	t.Helper()
	resp, ok := src.Next()
	if !ok {
		t.Fatal("expected at least one response")
	}
	if _, ok := src.Next(); ok {
		t.Fatal("expected exactly one response")
	}
	return resp
}

func TestHsetThenHget(t *testing.T) {
	d := newTestDispatcher()

	resp := drainOne(t, d.Execute(wire.NewHset("t1", wire.KvPair{Key: "k1", Value: wire.StringValue("v1")})))
	if !resp.Values[0].IsAbsent() {
		t.Fatalf("expected absent previous value, got %+v", resp.Values[0])
	}

	resp = drainOne(t, d.Execute(wire.NewHget("t1", "k1")))
	if resp.StateCode != 200 || resp.Values[0].Str != "v1" {
		t.Fatalf("unexpected hget response: %+v", resp)
	}
}

func TestHgetMissingKeyIsNotFound(t *testing.T) {
	d := newTestDispatcher()
	d.Execute(wire.NewHset("t1", wire.KvPair{Key: "k1", Value: wire.StringValue("v1")}))

	resp := drainOne(t, d.Execute(wire.NewHget("t1", "missing")))
	if resp.StateCode != 404 {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func TestHgetMissingTableIsNotFound(t *testing.T) {
	d := newTestDispatcher()
	resp := drainOne(t, d.Execute(wire.NewHget("missing", "k1")))
	if resp.StateCode != 404 {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func TestHexistsNeverErrors(t *testing.T) {
	d := newTestDispatcher()
	resp := drainOne(t, d.Execute(wire.NewHexists("missing", "k1")))
	if resp.StateCode != 200 || resp.Values[0].Bln != false {
		t.Fatalf("expected ok(false), got %+v", resp)
	}
}

func TestSubscribeStreamsIDThenPublishedValues(t *testing.T) {
	d := newTestDispatcher()
	src := d.Execute(wire.NewSubscribe("topic1"))

	announce, ok := src.Next()
	if !ok || len(announce.Values) != 1 {
		t.Fatalf("expected id-announce frame, got %+v, %v", announce, ok)
	}

	pubSrc := d.Execute(wire.NewPublish("topic1", []wire.Value{wire.StringValue("hello")}))
	exit := drainOne(t, pubSrc)
	if !exit.Exit {
		t.Fatalf("expected publish to return an exit oneshot, got %+v", exit)
	}

	got, ok := src.Next()
	if !ok || len(got.Values) != 1 || got.Values[0].Str != "hello" {
		t.Fatalf("expected published value on subscription, got %+v, %v", got, ok)
	}
}

func TestUnsubscribeTerminatesSubscription(t *testing.T) {
	d := newTestDispatcher()
	sub := d.Execute(wire.NewSubscribe("topic1"))
	announce, _ := sub.Next()
	id, _ := announce.Values[0].AsInt64()

	unsubSrc := d.Execute(wire.NewUnsubscribe("topic1", uint32(id)))
	exit := drainOne(t, unsubSrc)
	if !exit.Exit {
		t.Fatalf("expected unsubscribe to return an exit oneshot, got %+v", exit)
	}

	term, ok := sub.Next()
	if !ok || !term.Exit {
		t.Fatalf("expected subscription to observe its own exit frame, got %+v, %v", term, ok)
	}
}

func TestHooksFireInOrder(t *testing.T) {
	var order []string
	d := newTestDispatcher().
		OnReceived(func(*wire.CommandRequest) { order = append(order, "received") }).
		OnExecuted(func(*wire.CommandResponse) { order = append(order, "executed") }).
		OnBeforeSend(func(r *wire.CommandResponse) { order = append(order, "before_send"); r.Msg = "patched" })

	resp := drainOne(t, d.Execute(wire.NewHget("missing", "k1")))
	if resp.Msg != "patched" {
		t.Fatalf("expected before_send hook to patch message, got %+v", resp)
	}
	want := []string{"received", "executed", "before_send"}
	if len(order) != len(want) {
		t.Fatalf("want %v got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("want %v got %v", want, order)
		}
	}
}

func TestAfterSendOnlyFiresOnExplicitNotify(t *testing.T) {
	fired := 0
	d := newTestDispatcher().OnAfterSend(func() { fired++ })

	d.Execute(wire.NewHget("missing", "k1"))
	if fired != 0 {
		t.Fatalf("on_after_send must not fire from Execute alone, fired=%d", fired)
	}
	d.NotifyAfterSend()
	if fired != 1 {
		t.Fatalf("expected NotifyAfterSend to invoke the hook once, fired=%d", fired)
	}
}
