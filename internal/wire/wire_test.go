package wire

import (
	"testing"

	"odin-kv-server/internal/kverr"
)

func TestValueRoundTrip(t *testing.T) {
	cases := []Value{
		Absent(),
		StringValue("hello"),
		BinaryValue([]byte{1, 2, 3, 0, 255}),
		IntValue(-42),
		FloatValue(3.14159),
		BoolValue(true),
		BoolValue(false),
	}
	for _, v := range cases {
		got, err := unmarshalValue(v.Marshal())
		if err != nil {
			t.Fatalf("unmarshal %+v: %v", v, err)
		}
		if !got.Equal(v) {
			t.Fatalf("round trip mismatch: want %+v got %+v", v, got)
		}
	}
}

func TestKvPairRoundTrip(t *testing.T) {
	p := KvPair{Key: "k1", Value: IntValue(7)}
	got, err := unmarshalKvPair(p.marshalAppend(nil))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Key != p.Key || !got.Value.Equal(p.Value) {
		t.Fatalf("round trip mismatch: want %+v got %+v", p, got)
	}
}

func TestCommandRequestRoundTrip(t *testing.T) {
	reqs := []CommandRequest{
		NewHget("t1", "k1"),
		NewHmget("t1", []string{"a", "b"}),
		NewHset("t1", KvPair{Key: "k1", Value: StringValue("v1")}),
		NewHmset("t1", []KvPair{{Key: "a", Value: IntValue(1)}, {Key: "b", Value: IntValue(2)}}),
		NewHexists("t1", "k1"),
		NewHmexists("t1", []string{"a", "b"}),
		NewHdelete("t1", "k1"),
		NewHmdelete("t1", []string{"a", "b"}),
		NewHgetall("t1"),
		NewSubscribe("topic1"),
		NewUnsubscribe("topic1", 7),
		NewPublish("topic1", []Value{StringValue("payload")}),
	}
	for _, r := range reqs {
		raw, err := r.MarshalWire()
		if err != nil {
			t.Fatalf("marshal %+v: %v", r, err)
		}
		got, err := UnmarshalCommandRequest(raw)
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Kind != r.Kind {
			t.Fatalf("kind mismatch: want %v got %v", r.Kind, got.Kind)
		}
	}
}

func TestCommandRequestUnsetKindFailsToMarshal(t *testing.T) {
	var r CommandRequest
	if _, err := r.MarshalWire(); err == nil {
		t.Fatal("expected error marshaling unset CommandRequest")
	}
}

func TestCommandResponseRoundTrip(t *testing.T) {
	resps := []CommandResponse{
		Ok(),
		OkValues([]Value{IntValue(1), StringValue("x")}),
		OkPairs([]KvPair{{Key: "a", Value: IntValue(1)}}),
		ExitResponse(),
		FromError(kverr.NotFound("t1", "k1")),
	}
	for _, r := range resps {
		raw, err := r.MarshalWire()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		got, err := UnmarshalCommandResponse(raw)
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.StateCode != r.StateCode || got.Exit != r.Exit || got.Msg != r.Msg {
			t.Fatalf("round trip mismatch: want %+v got %+v", r, got)
		}
	}
}

func TestCommandResponseIsZero(t *testing.T) {
	var r CommandResponse
	if !r.IsZero() {
		t.Fatal("zero-value CommandResponse should report IsZero")
	}
	if Ok().IsZero() {
		t.Fatal("Ok() must not be the zero sentinel")
	}
}

