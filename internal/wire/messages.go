package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"odin-kv-server/internal/kverr"
)

// RequestKind tags which of the twelve operation payloads a CommandRequest
// carries, mirroring the oneof tags 1..12 from spec.md §4.1.
type RequestKind int

const (
	ReqUnknown RequestKind = iota
	ReqHget
	ReqHmget
	ReqHset
	ReqHmset
	ReqHexists
	ReqHmexists
	ReqHdelete
	ReqHmdelete
	ReqHgetall
	ReqSubscribe
	ReqUnsubscribe
	ReqPublish
)

// CommandRequest is the envelope sent client->server: exactly one of the
// twelve operation fields is populated, selected by Kind.
type CommandRequest struct {
	Kind RequestKind

	Hget        Hget
	Hmget       Hmget
	Hset        Hset
	Hmset       Hmset
	Hexists     Hexists
	Hmexists    Hmexists
	Hdelete     Hdelete
	Hmdelete    Hmdelete
	Hgetall     Hgetall
	Subscribe   Subscribe
	Unsubscribe Unsubscribe
	Publish     Publish
}

func NewHget(table, key string) CommandRequest {
	return CommandRequest{Kind: ReqHget, Hget: Hget{Table: table, Key: key}}
}

func NewHmget(table string, keys []string) CommandRequest {
	return CommandRequest{Kind: ReqHmget, Hmget: Hmget{Table: table, Keys: keys}}
}

func NewHset(table string, pair KvPair) CommandRequest {
	return CommandRequest{Kind: ReqHset, Hset: Hset{Table: table, Pair: pair}}
}

func NewHmset(table string, pairs []KvPair) CommandRequest {
	return CommandRequest{Kind: ReqHmset, Hmset: Hmset{Table: table, Pairs: pairs}}
}

func NewHexists(table, key string) CommandRequest {
	return CommandRequest{Kind: ReqHexists, Hexists: Hexists{Table: table, Key: key}}
}

func NewHmexists(table string, keys []string) CommandRequest {
	return CommandRequest{Kind: ReqHmexists, Hmexists: Hmexists{Table: table, Keys: keys}}
}

func NewHdelete(table, key string) CommandRequest {
	return CommandRequest{Kind: ReqHdelete, Hdelete: Hdelete{Table: table, Key: key}}
}

func NewHmdelete(table string, keys []string) CommandRequest {
	return CommandRequest{Kind: ReqHmdelete, Hmdelete: Hmdelete{Table: table, Keys: keys}}
}

func NewHgetall(table string) CommandRequest {
	return CommandRequest{Kind: ReqHgetall, Hgetall: Hgetall{Table: table}}
}

func NewSubscribe(topic string) CommandRequest {
	return CommandRequest{Kind: ReqSubscribe, Subscribe: Subscribe{Topic: topic}}
}

func NewUnsubscribe(topic string, id uint32) CommandRequest {
	return CommandRequest{Kind: ReqUnsubscribe, Unsubscribe: Unsubscribe{Topic: topic, ID: id}}
}

func NewPublish(topic string, data []Value) CommandRequest {
	return CommandRequest{Kind: ReqPublish, Publish: Publish{Topic: topic, Data: data}}
}

// MarshalWire encodes the request as a length-delimited oneof field, tag
// equal to Kind, wrapping the selected payload's own encoding.
func (r CommandRequest) MarshalWire() ([]byte, error) {
	var tag protowire.Number
	var body []byte

	switch r.Kind {
	case ReqHget:
		tag, body = 1, r.Hget.marshal()
	case ReqHmget:
		tag, body = 2, r.Hmget.marshal()
	case ReqHset:
		tag, body = 3, r.Hset.marshal()
	case ReqHmset:
		tag, body = 4, r.Hmset.marshal()
	case ReqHexists:
		tag, body = 5, r.Hexists.marshal()
	case ReqHmexists:
		tag, body = 6, r.Hmexists.marshal()
	case ReqHdelete:
		tag, body = 7, r.Hdelete.marshal()
	case ReqHmdelete:
		tag, body = 8, r.Hmdelete.marshal()
	case ReqHgetall:
		tag, body = 9, r.Hgetall.marshal()
	case ReqSubscribe:
		tag, body = 10, r.Subscribe.marshal()
	case ReqUnsubscribe:
		tag, body = 11, r.Unsubscribe.marshal()
	case ReqPublish:
		tag, body = 12, r.Publish.marshal()
	default:
		return nil, kverr.InvalidCommand("unset request kind")
	}

	b := protowire.AppendTag(nil, tag, protowire.BytesType)
	b = protowire.AppendBytes(b, body)
	return b, nil
}

// UnmarshalCommandRequest decodes a CommandRequest, failing with
// KindInvalidCommand if no recognized oneof branch is present.
func UnmarshalCommandRequest(data []byte) (CommandRequest, error) {
	num, typ, n := protowire.ConsumeTag(data)
	if n < 0 {
		return CommandRequest{}, errDecode(protowire.ParseError(n))
	}
	data = data[n:]
	if typ != protowire.BytesType {
		return CommandRequest{}, kverr.InvalidCommand("request field is not length-delimited")
	}
	body, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return CommandRequest{}, errDecode(protowire.ParseError(n))
	}

	switch num {
	case 1:
		m, err := unmarshalHget(body)
		return CommandRequest{Kind: ReqHget, Hget: m}, err
	case 2:
		m, err := unmarshalHmget(body)
		return CommandRequest{Kind: ReqHmget, Hmget: m}, err
	case 3:
		m, err := unmarshalHset(body)
		return CommandRequest{Kind: ReqHset, Hset: m}, err
	case 4:
		m, err := unmarshalHmset(body)
		return CommandRequest{Kind: ReqHmset, Hmset: m}, err
	case 5:
		m, err := unmarshalHexists(body)
		return CommandRequest{Kind: ReqHexists, Hexists: m}, err
	case 6:
		m, err := unmarshalHmexists(body)
		return CommandRequest{Kind: ReqHmexists, Hmexists: m}, err
	case 7:
		m, err := unmarshalHdelete(body)
		return CommandRequest{Kind: ReqHdelete, Hdelete: m}, err
	case 8:
		m, err := unmarshalHmdelete(body)
		return CommandRequest{Kind: ReqHmdelete, Hmdelete: m}, err
	case 9:
		m, err := unmarshalHgetall(body)
		return CommandRequest{Kind: ReqHgetall, Hgetall: m}, err
	case 10:
		m, err := unmarshalSubscribe(body)
		return CommandRequest{Kind: ReqSubscribe, Subscribe: m}, err
	case 11:
		m, err := unmarshalUnsubscribe(body)
		return CommandRequest{Kind: ReqUnsubscribe, Unsubscribe: m}, err
	case 12:
		m, err := unmarshalPublish(body)
		return CommandRequest{Kind: ReqPublish, Publish: m}, err
	default:
		return CommandRequest{}, kverr.InvalidCommand("unknown request tag")
	}
}

// CommandResponse is the envelope sent server->client for both a unary
// reply and each frame of a streaming reply. StateCode 0 with no Exit and
// no Msg is not a legal response; dispatch always sets at least StateCode.
type CommandResponse struct {
	StateCode uint32
	Msg       string
	Values    []Value
	Pairs     []KvPair
	Exit      bool
}

// IsZero reports whether r is the zero-value sentinel the dispatcher uses to
// distinguish "a streaming op, nothing to send as a unary reply" from a
// genuine unary result.
func (r CommandResponse) IsZero() bool {
	return r.StateCode == 0 && r.Msg == "" && len(r.Values) == 0 && len(r.Pairs) == 0 && !r.Exit
}

func Ok() CommandResponse {
	return CommandResponse{StateCode: 200}
}

func OkValues(values []Value) CommandResponse {
	return CommandResponse{StateCode: 200, Values: values}
}

func OkPairs(pairs []KvPair) CommandResponse {
	return CommandResponse{StateCode: 200, Pairs: pairs}
}

// ExitResponse is the terminator frame: Unsubscribe pushes it as the last
// frame of the departing subscription, and it is the single reply to an
// Unsubscribe or Publish request. Nothing sends it on connection teardown.
func ExitResponse() CommandResponse {
	return CommandResponse{StateCode: 200, Exit: true}
}

// FromError converts a KVError into its wire CommandResponse form.
func FromError(err error) CommandResponse {
	var kv *kverr.KVError
	if ke, ok := err.(*kverr.KVError); ok {
		kv = ke
	} else {
		kv = kverr.Invalid(err.Error())
	}
	return CommandResponse{StateCode: kv.StatusCode(), Msg: kv.Error()}
}

func (r CommandResponse) MarshalWire() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.StateCode))
	if r.Msg != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, r.Msg)
	}
	for _, v := range r.Values {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, v.marshalAppend(nil))
	}
	for _, p := range r.Pairs {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, p.marshalAppend(nil))
	}
	if r.Exit {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b, nil
}

func UnmarshalCommandResponse(data []byte) (CommandResponse, error) {
	var r CommandResponse
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return r, errDecode(protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case 1:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return r, errDecode(protowire.ParseError(n))
			}
			r.StateCode = uint32(x)
			data = data[n:]
		case 2:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return r, errDecode(protowire.ParseError(n))
			}
			r.Msg = s
			data = data[n:]
		case 3:
			bts, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errDecode(protowire.ParseError(n))
			}
			v, err := unmarshalValue(bts)
			if err != nil {
				return r, err
			}
			r.Values = append(r.Values, v)
			data = data[n:]
		case 4:
			bts, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return r, errDecode(protowire.ParseError(n))
			}
			p, err := unmarshalKvPair(bts)
			if err != nil {
				return r, err
			}
			r.Pairs = append(r.Pairs, p)
			data = data[n:]
		case 5:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return r, errDecode(protowire.ParseError(n))
			}
			r.Exit = x != 0
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return r, errDecode(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return r, nil
}
