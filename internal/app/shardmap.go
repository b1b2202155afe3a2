package app

import (
	"hash/maphash"
	"sync"
)

const shardCount = 32

// shardMap spreads keys over independently locked shards so that work on one
// room or identity never waits on an unrelated one.
type shardMap[K ~string, V any] struct {
	seed   maphash.Seed
	shards [shardCount]shard[K, V]
}

type shard[K ~string, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func newShardMap[K ~string, V any]() *shardMap[K, V] {
	s := &shardMap[K, V]{seed: maphash.MakeSeed()}
	for i := range s.shards {
		s.shards[i].m = make(map[K]V)
	}
	return s
}

func (s *shardMap[K, V]) shardFor(k K) *shard[K, V] {
	return &s.shards[maphash.String(s.seed, string(k))%shardCount]
}

func (s *shardMap[K, V]) Load(k K) (V, bool) {
	sh := s.shardFor(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.m[k]
	return v, ok
}

// Update runs fn under the key's shard lock. fn gets the current value and
// returns the new one; keep=false deletes the key.
func (s *shardMap[K, V]) Update(k K, fn func(cur V, ok bool) (next V, keep bool)) {
	sh := s.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cur, ok := sh.m[k]
	next, keep := fn(cur, ok)
	if keep {
		sh.m[k] = next
	} else if ok {
		delete(sh.m, k)
	}
}

// LoadOrStore returns the existing value or stores the one built by mk.
func (s *shardMap[K, V]) LoadOrStore(k K, mk func() V) (V, bool) {
	sh := s.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if v, ok := sh.m[k]; ok {
		return v, true
	}
	v := mk()
	sh.m[k] = v
	return v, false
}

// CompareAndDelete removes k only while eq reports the stored value as current.
func (s *shardMap[K, V]) CompareAndDelete(k K, eq func(V) bool) bool {
	sh := s.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if v, ok := sh.m[k]; ok && eq(v) {
		delete(sh.m, k)
		return true
	}
	return false
}

type entry[K ~string, V any] struct {
	Key   K
	Value V
}

// Snapshot copies every shard in turn. Each shard is consistent on its own.
func (s *shardMap[K, V]) Snapshot() []entry[K, V] {
	var out []entry[K, V]
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for k, v := range sh.m {
			out = append(out, entry[K, V]{Key: k, Value: v})
		}
		sh.mu.RUnlock()
	}
	return out
}

func (s *shardMap[K, V]) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.m)
		sh.mu.RUnlock()
	}
	return n
}
