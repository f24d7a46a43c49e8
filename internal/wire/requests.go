package wire

import "google.golang.org/protobuf/encoding/protowire"

// Hget, Hmget, ... are the twelve operation payloads named by spec.md §3,
// each the body of one CommandRequest oneof branch (tags 1..12).

type Hget struct {
	Table string
	Key   string
}

type Hmget struct {
	Table string
	Keys  []string
}

type Hset struct {
	Table string
	Pair  KvPair
}

type Hmset struct {
	Table string
	Pairs []KvPair
}

type Hexists struct {
	Table string
	Key   string
}

type Hmexists struct {
	Table string
	Keys  []string
}

type Hdelete struct {
	Table string
	Key   string
}

type Hmdelete struct {
	Table string
	Keys  []string
}

type Hgetall struct {
	Table string
}

type Subscribe struct {
	Topic string
}

type Unsubscribe struct {
	Topic string
	ID    uint32
}

type Publish struct {
	Topic string
	Data  []Value
}

func appendTableKey(b []byte, table, key string) []byte {
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, table)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, key)
	return b
}

func appendTableKeys(b []byte, table string, keys []string) []byte {
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, table)
	for _, k := range keys {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	return b
}

func consumeTableKeys(data []byte) (table string, keys []string, err error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return table, keys, errDecode(protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case 1:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return table, keys, errDecode(protowire.ParseError(n))
			}
			table = s
			data = data[n:]
		case 2:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return table, keys, errDecode(protowire.ParseError(n))
			}
			keys = append(keys, s)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return table, keys, errDecode(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return table, keys, nil
}

func (m Hget) marshal() []byte   { return appendTableKey(nil, m.Table, m.Key) }
func (m Hexists) marshal() []byte { return appendTableKey(nil, m.Table, m.Key) }
func (m Hdelete) marshal() []byte { return appendTableKey(nil, m.Table, m.Key) }

func unmarshalHget(data []byte) (Hget, error) {
	table, keys, err := consumeTableKeys(data)
	if err != nil {
		return Hget{}, err
	}
	var key string
	if len(keys) > 0 {
		key = keys[0]
	}
	return Hget{Table: table, Key: key}, nil
}

func unmarshalHexists(data []byte) (Hexists, error) {
	h, err := unmarshalHget(data)
	return Hexists(h), err
}

func unmarshalHdelete(data []byte) (Hdelete, error) {
	h, err := unmarshalHget(data)
	return Hdelete(h), err
}

func (m Hmget) marshal() []byte    { return appendTableKeys(nil, m.Table, m.Keys) }
func (m Hmexists) marshal() []byte { return appendTableKeys(nil, m.Table, m.Keys) }
func (m Hmdelete) marshal() []byte { return appendTableKeys(nil, m.Table, m.Keys) }

func unmarshalHmget(data []byte) (Hmget, error) {
	table, keys, err := consumeTableKeys(data)
	return Hmget{Table: table, Keys: keys}, err
}

func unmarshalHmexists(data []byte) (Hmexists, error) {
	h, err := unmarshalHmget(data)
	return Hmexists(h), err
}

func unmarshalHmdelete(data []byte) (Hmdelete, error) {
	h, err := unmarshalHmget(data)
	return Hmdelete(h), err
}

func (m Hset) marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Table)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Pair.marshalAppend(nil))
	return b
}

func unmarshalHset(data []byte) (Hset, error) {
	var m Hset
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return m, errDecode(protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case 1:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			m.Table = s
			data = data[n:]
		case 2:
			bts, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			pair, err := unmarshalKvPair(bts)
			if err != nil {
				return m, err
			}
			m.Pair = pair
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return m, nil
}

func (m Hmset) marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Table)
	for _, p := range m.Pairs {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, p.marshalAppend(nil))
	}
	return b
}

func unmarshalHmset(data []byte) (Hmset, error) {
	var m Hmset
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return m, errDecode(protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case 1:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			m.Table = s
			data = data[n:]
		case 2:
			bts, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			pair, err := unmarshalKvPair(bts)
			if err != nil {
				return m, err
			}
			m.Pairs = append(m.Pairs, pair)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return m, nil
}

func (m Hgetall) marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Table)
	return b
}

func unmarshalHgetall(data []byte) (Hgetall, error) {
	table, _, err := consumeTableKeys(data)
	return Hgetall{Table: table}, err
}

func (m Subscribe) marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Topic)
	return b
}

func unmarshalSubscribe(data []byte) (Subscribe, error) {
	topic, _, err := consumeTableKeys(data)
	return Subscribe{Topic: topic}, err
}

func (m Unsubscribe) marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Topic)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ID))
	return b
}

func unmarshalUnsubscribe(data []byte) (Unsubscribe, error) {
	var m Unsubscribe
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return m, errDecode(protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case 1:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			m.Topic = s
			data = data[n:]
		case 2:
			x, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			m.ID = uint32(x)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return m, nil
}

func (m Publish) marshal() []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Topic)
	for _, v := range m.Data {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, v.marshalAppend(nil))
	}
	return b
}

func unmarshalPublish(data []byte) (Publish, error) {
	var m Publish
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return m, errDecode(protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case 1:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			m.Topic = s
			data = data[n:]
		case 2:
			bts, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			v, err := unmarshalValue(bts)
			if err != nil {
				return m, err
			}
			m.Data = append(m.Data, v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return m, errDecode(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return m, nil
}
