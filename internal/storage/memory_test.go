package storage

import (
	"sort"
	"testing"

	"odin-kv-server/internal/kverr"
	"odin-kv-server/internal/wire"
)

func TestMemoryStoreSetCreatesTable(t *testing.T) {
	db := NewMemoryStore(4)
	prev, err := db.Set("t1", "k1", wire.StringValue("v1"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !prev.IsAbsent() {
		t.Fatalf("expected absent previous value, got %+v", prev)
	}
}

func TestMemoryStoreGetMissingTable(t *testing.T) {
	db := NewMemoryStore(4)
	_, err := db.Get("missing", "k1")
	if kverr.Of(err) != kverr.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMemoryStoreCrudCycle(t *testing.T) {
	db := NewMemoryStore(4)
	if _, err := db.Set("t1", "k1", wire.StringValue("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := db.Get("t1", "k1")
	if err != nil || got.Str != "v1" {
		t.Fatalf("get: %+v, %v", got, err)
	}

	prev, err := db.Set("t1", "k1", wire.StringValue("v2"))
	if err != nil || prev.Str != "v1" {
		t.Fatalf("set overwrite: %+v, %v", prev, err)
	}

	ok, err := db.Contains("t1", "k1")
	if err != nil || !ok {
		t.Fatalf("contains: %v, %v", ok, err)
	}

	if _, err := db.Set("t1", "k2", wire.StringValue("v2")); err != nil {
		t.Fatalf("set k2: %v", err)
	}

	pairs, err := db.GetAll("t1")
	if err != nil {
		t.Fatalf("get_all: %v", err)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	if len(pairs) != 2 || pairs[0].Key != "k1" || pairs[1].Key != "k2" {
		t.Fatalf("unexpected pairs: %+v", pairs)
	}

	deleted, err := db.Delete("t1", "k1")
	if err != nil || deleted.Str != "v2" {
		t.Fatalf("delete: %+v, %v", deleted, err)
	}
}

func TestMemoryStoreGetIter(t *testing.T) {
	db := NewMemoryStore(4)
	db.Set("t1", "k1", wire.StringValue("v1"))
	db.Set("t1", "k2", wire.StringValue("v2"))

	it, err := db.GetIter("t1")
	if err != nil {
		t.Fatalf("get_iter: %v", err)
	}
	var got []wire.KvPair
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, p)
	}
	sort.Slice(got, func(i, j int) bool { return got[i].Key < got[j].Key })
	if len(got) != 2 || got[0].Key != "k1" || got[1].Key != "k2" {
		t.Fatalf("unexpected iter result: %+v", got)
	}
}

func TestMemoryStoreOtherOpsNotFoundOnMissingTable(t *testing.T) {
	db := NewMemoryStore(4)
	if _, err := db.Contains("missing", "k"); kverr.Of(err) != kverr.KindNotFound {
		t.Fatalf("contains: want NotFound, got %v", err)
	}
	if _, err := db.Delete("missing", "k"); kverr.Of(err) != kverr.KindNotFound {
		t.Fatalf("delete: want NotFound, got %v", err)
	}
	if _, err := db.GetAll("missing"); kverr.Of(err) != kverr.KindNotFound {
		t.Fatalf("get_all: want NotFound, got %v", err)
	}
	if _, err := db.GetIter("missing"); kverr.Of(err) != kverr.KindNotFound {
		t.Fatalf("get_iter: want NotFound, got %v", err)
	}
}
