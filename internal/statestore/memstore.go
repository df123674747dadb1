package statestore

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store used by unit tests and the "memory"
// backend. Writes inside an invocation are staged and applied to the
// committed map only when the invocation function returns nil. Invocations
// are serialized by a single mutex, which stands in for the host's
// conflict handling.
type MemStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string][]byte),
	}
}

func (m *MemStore) WithInvocation(ctx context.Context, fn func(State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := &memState{
		base:   m.records,
		staged: make(map[string][]byte),
	}

	if err := fn(view); err != nil {
		return err
	}

	for k, v := range view.staged {
		m.records[k] = v
	}
	return nil
}

func (m *MemStore) Close() error {
	return nil
}

type memState struct {
	base   map[string][]byte
	staged map[string][]byte
}

func (s *memState) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if v, ok := s.staged[string(key)]; ok {
		return append([]byte(nil), v...), true, nil
	}
	if v, ok := s.base[string(key)]; ok {
		return append([]byte(nil), v...), true, nil
	}
	return nil, false, nil
}

func (s *memState) Put(ctx context.Context, key, value []byte) error {
	s.staged[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *memState) Range(ctx context.Context, start, end []byte) (Iterator, error) {
	merged := make(map[string][]byte, len(s.base))
	for k, v := range s.base {
		merged[k] = v
	}
	for k, v := range s.staged {
		merged[k] = v
	}

	var pairs []kvPair
	for k, v := range merged {
		key := []byte(k)
		if bytes.Compare(key, start) >= 0 && bytes.Compare(key, end) < 0 {
			pairs = append(pairs, kvPair{key: key, value: v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].key, pairs[j].key) < 0
	})

	return &memIterator{pairs: pairs, pos: -1}, nil
}

type kvPair struct {
	key   []byte
	value []byte
}

type memIterator struct {
	pairs []kvPair
	pos   int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.pairs)
}

func (it *memIterator) Key() []byte   { return it.pairs[it.pos].key }
func (it *memIterator) Value() []byte { return it.pairs[it.pos].value }
func (it *memIterator) Err() error    { return nil }
func (it *memIterator) Close() error  { return nil }
