package frame

import (
	"bytes"
	"strings"
	"testing"

	"odin-kv-server/internal/wire"
)

func TestEncodeDecodeRoundTripSmall(t *testing.T) {
	req := wire.NewHget("t1", "k1")
	var buf bytes.Buffer
	if err := EncodePayload(&buf, req); err != nil {
		t.Fatalf("encode: %v", err)
	}

	raw, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := wire.UnmarshalCommandRequest(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != wire.ReqHget || got.Hget.Table != "t1" || got.Hget.Key != "k1" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestEncodeDecodeRoundTripCompressed(t *testing.T) {
	values := make([]wire.Value, 0, 10000)
	for i := 0; i < 10000; i++ {
		values = append(values, wire.IntValue(0))
	}
	resp := wire.OkValues(values)

	raw, err := resp.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(raw) <= CompressionLimit {
		t.Fatalf("expected payload above compression limit, got %d bytes", len(raw))
	}

	var buf bytes.Buffer
	if err := Encode(&buf, raw); err != nil {
		t.Fatalf("encode: %v", err)
	}

	header := buf.Bytes()[:lenLen]
	length, compressed := decodeHeader(uint32(header[0])<<24 | uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3]))
	if !compressed {
		t.Fatal("expected compression bit to be set for oversized payload")
	}
	if length == 0 {
		t.Fatal("expected nonzero compressed length")
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := wire.UnmarshalCommandResponse(decoded)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Values) != len(values) {
		t.Fatalf("want %d values, got %d", len(values), len(got.Values))
	}
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(header)
	if _, err := Decode(&buf); err == nil {
		t.Fatal("expected error decoding oversized frame header")
	}
}

func TestDecodeShortReadFails(t *testing.T) {
	r := strings.NewReader("\x00\x00")
	if _, err := Decode(r); err == nil {
		t.Fatal("expected error on truncated header")
	}
}
