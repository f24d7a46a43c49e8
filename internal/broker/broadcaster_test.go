package broker

import (
	"testing"

	"odin-kv-server/internal/wire"
)

func TestSubscribeDeliversIDAnnounceFirst(t *testing.T) {
	b := New()
	sub := b.Subscribe("topic1")

	resp, ok := sub.Recv()
	if !ok {
		t.Fatal("expected id-announce frame")
	}
	if len(resp.Values) != 1 {
		t.Fatalf("expected exactly one value, got %+v", resp)
	}
	id, ok := resp.Values[0].AsInt64()
	if !ok || uint32(id) != sub.ID {
		t.Fatalf("announce id mismatch: got %v want %d", resp.Values[0], sub.ID)
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New()
	sub1 := b.Subscribe("topic1")
	sub2 := b.Subscribe("topic1")
	drainAnnounce(t, sub1)
	drainAnnounce(t, sub2)

	payload := wire.Ok()
	b.Publish("topic1", payload)

	got1, ok := sub1.Recv()
	if !ok || got1.StateCode != payload.StateCode {
		t.Fatalf("sub1 missed publish: %+v, %v", got1, ok)
	}
	got2, ok := sub2.Recv()
	if !ok || got2.StateCode != payload.StateCode {
		t.Fatalf("sub2 missed publish: %+v, %v", got2, ok)
	}
}

func TestUnsubscribeSendsExitAndStopsDelivery(t *testing.T) {
	b := New()
	sub1 := b.Subscribe("topic1")
	sub2 := b.Subscribe("topic1")
	drainAnnounce(t, sub1)
	drainAnnounce(t, sub2)

	b.Unsubscribe("topic1", sub1.ID)

	exit, ok := sub1.Recv()
	if !ok || !exit.Exit {
		t.Fatalf("expected exit frame, got %+v, %v", exit, ok)
	}

	b.Publish("topic1", wire.Ok())
	if got1, ok := sub1.Recv(); ok {
		t.Fatalf("sub1 should receive nothing after its exit frame, got %+v", got1)
	}
	got2, ok := sub2.Recv()
	if !ok || got2.Exit {
		t.Fatalf("sub2 should still receive normal publishes: %+v", got2)
	}
}

func TestUnsubscribeMissingIDIsNoop(t *testing.T) {
	b := New()
	b.Unsubscribe("topic1", 9999)
}

func drainAnnounce(t *testing.T, sub *Subscription) {
	t.Helper()
	if _, ok := sub.Recv(); !ok {
		t.Fatal("expected id-announce frame")
	}
}
