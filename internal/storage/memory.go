package storage

import (
	"hash/fnv"
	"sync"

	"odin-kv-server/internal/kverr"
	"odin-kv-server/internal/wire"
)

const defaultShardCount = 64

type tableShard struct {
	mu     sync.RWMutex
	tables map[string]map[string]wire.Value
}

// MemoryStore is the default Storage backend: tables are sharded across a
// fixed number of buckets hashed by table name, each guarded by its own
// RWMutex, so operations on different tables don't contend on one lock.
type MemoryStore struct {
	shards []*tableShard
}

// NewMemoryStore builds a MemoryStore with shardCount buckets, falling
// back to a sane default when shardCount is non-positive.
func NewMemoryStore(shardCount int) *MemoryStore {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	shards := make([]*tableShard, shardCount)
	for i := range shards {
		shards[i] = &tableShard{tables: make(map[string]map[string]wire.Value)}
	}
	return &MemoryStore{shards: shards}
}

func (m *MemoryStore) shardFor(table string) *tableShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(table))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

func (m *MemoryStore) Get(table, key string) (wire.Value, error) {
	s := m.shardFor(table)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return wire.Absent(), kverr.NotFound(table, key)
	}
	v, ok := t[key]
	if !ok {
		return wire.Absent(), nil
	}
	return v, nil
}

func (m *MemoryStore) Set(table, key string, value wire.Value) (wire.Value, error) {
	s := m.shardFor(table)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		t = make(map[string]wire.Value)
		s.tables[table] = t
	}
	prev, had := t[key]
	t[key] = value
	if !had {
		return wire.Absent(), nil
	}
	return prev, nil
}

func (m *MemoryStore) Contains(table, key string) (bool, error) {
	s := m.shardFor(table)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return false, kverr.NotFound(table, key)
	}
	_, ok = t[key]
	return ok, nil
}

func (m *MemoryStore) Delete(table, key string) (wire.Value, error) {
	s := m.shardFor(table)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return wire.Absent(), kverr.NotFound(table, key)
	}
	prev, had := t[key]
	if !had {
		return wire.Absent(), nil
	}
	delete(t, key)
	return prev, nil
}

func (m *MemoryStore) GetAll(table string) ([]wire.KvPair, error) {
	s := m.shardFor(table)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return nil, kverr.NotFound(table, "")
	}
	pairs := make([]wire.KvPair, 0, len(t))
	for k, v := range t {
		pairs = append(pairs, wire.KvPair{Key: k, Value: v})
	}
	return pairs, nil
}

// snapshotIterator walks a point-in-time copy of a table's pairs: Go has
// no live-iterator equivalent to the Rust DashMap iterator in memory.rs,
// so GetIter snapshots under the shard's read lock instead.
type snapshotIterator struct {
	pairs []wire.KvPair
	pos   int
}

func (it *snapshotIterator) Next() (wire.KvPair, bool) {
	if it.pos >= len(it.pairs) {
		return wire.KvPair{}, false
	}
	p := it.pairs[it.pos]
	it.pos++
	return p, true
}

func (m *MemoryStore) GetIter(table string) (Iterator, error) {
	pairs, err := m.GetAll(table)
	if err != nil {
		return nil, err
	}
	return &snapshotIterator{pairs: pairs}, nil
}
