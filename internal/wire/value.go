// Package wire implements the tagged-variant wire schema from the
// specification (C1): Value, KvPair, CommandRequest, CommandResponse, and
// the twelve per-operation request messages. Encoding is hand-rolled on top
// of google.golang.org/protobuf/encoding/protowire so the on-wire layout is
// a standard protobuf byte stream without requiring a protoc code-gen step.
package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ValueKind tags which alternative of the Value oneof is set.
type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueString
	ValueBinary
	ValueInteger
	ValueFloat
	ValueBool
)

const (
	valueTagString  = 1
	valueTagBinary  = 2
	valueTagInteger = 3
	valueTagFloat   = 4
	valueTagBool    = 5
)

// Value is a tagged variant over {string, binary, int64, float64, bool,
// absent}. The zero Value is the "no previous value" sentinel.
type Value struct {
	Kind ValueKind
	Str  string
	Bin  []byte
	Int  int64
	Flt  float64
	Bln  bool
}

func Absent() Value                { return Value{Kind: ValueAbsent} }
func StringValue(s string) Value   { return Value{Kind: ValueString, Str: s} }
func BinaryValue(b []byte) Value   { return Value{Kind: ValueBinary, Bin: b} }
func IntValue(i int64) Value       { return Value{Kind: ValueInteger, Int: i} }
func FloatValue(f float64) Value   { return Value{Kind: ValueFloat, Flt: f} }
func BoolValue(b bool) Value       { return Value{Kind: ValueBool, Bln: b} }
func (v Value) IsAbsent() bool     { return v.Kind == ValueAbsent }

// AsInt64 coerces a Value to an integer, reporting ok=false when the tag
// isn't Integer; the caller surfaces that as a Convert-kind error.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != ValueInteger {
		return 0, false
	}
	return v.Int, true
}

func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueString:
		return v.Str == o.Str
	case ValueBinary:
		return string(v.Bin) == string(o.Bin)
	case ValueInteger:
		return v.Int == o.Int
	case ValueFloat:
		return v.Flt == o.Flt
	case ValueBool:
		return v.Bln == o.Bln
	default:
		return true
	}
}

func (v Value) marshalAppend(b []byte) []byte {
	switch v.Kind {
	case ValueString:
		b = protowire.AppendTag(b, valueTagString, protowire.BytesType)
		b = protowire.AppendString(b, v.Str)
	case ValueBinary:
		b = protowire.AppendTag(b, valueTagBinary, protowire.BytesType)
		b = protowire.AppendBytes(b, v.Bin)
	case ValueInteger:
		b = protowire.AppendTag(b, valueTagInteger, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Int))
	case ValueFloat:
		b = protowire.AppendTag(b, valueTagFloat, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.Flt))
	case ValueBool:
		b = protowire.AppendTag(b, valueTagBool, protowire.VarintType)
		if v.Bln {
			b = protowire.AppendVarint(b, 1)
		} else {
			b = protowire.AppendVarint(b, 0)
		}
	}
	return b
}

// Marshal encodes the Value as a standalone length-delimited message body.
func (v Value) Marshal() []byte {
	return v.marshalAppend(nil)
}

func unmarshalValue(data []byte) (Value, error) {
	v := Absent()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return v, errDecode(protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case valueTagString:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return v, errDecode(protowire.ParseError(n))
			}
			v = Value{Kind: ValueString, Str: s}
			data = data[n:]
		case valueTagBinary:
			bts, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return v, errDecode(protowire.ParseError(n))
			}
			cp := append([]byte(nil), bts...)
			v = Value{Kind: ValueBinary, Bin: cp}
			data = data[n:]
		case valueTagInteger:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return v, errDecode(protowire.ParseError(n))
			}
			v = Value{Kind: ValueInteger, Int: int64(x)}
			data = data[n:]
		case valueTagFloat:
			x, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return v, errDecode(protowire.ParseError(n))
			}
			v = Value{Kind: ValueFloat, Flt: math.Float64frombits(x)}
			data = data[n:]
		case valueTagBool:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return v, errDecode(protowire.ParseError(n))
			}
			v = Value{Kind: ValueBool, Bln: x != 0}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return v, errDecode(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return v, nil
}

// KvPair is (key, value).
type KvPair struct {
	Key   string
	Value Value
}

func (p KvPair) marshalAppend(b []byte) []byte {
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, p.Key)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, p.Value.Marshal())
	return b
}

func unmarshalKvPair(data []byte) (KvPair, error) {
	var p KvPair
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return p, errDecode(protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case 1:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return p, errDecode(protowire.ParseError(n))
			}
			p.Key = s
			data = data[n:]
		case 2:
			bts, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return p, errDecode(protowire.ParseError(n))
			}
			v, err := unmarshalValue(bts)
			if err != nil {
				return p, err
			}
			p.Value = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return p, errDecode(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return p, nil
}
