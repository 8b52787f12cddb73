package storage

import (
	"sort"
	"strings"
	"sync"
)

// MemStore keeps entries in memory. Readers run concurrently, writers
// serialize and stage their changes until f returns.
type MemStore struct {
	Name string

	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemStore(name string) *MemStore {
	return &MemStore{
		Name: name,
		data: make(map[string][]byte),
	}
}

func (s *MemStore) View(f func(ReadOnlyTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f(&memTx{data: s.data})
}

func (s *MemStore) Update(f func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{data: s.data, staged: make(map[string][]byte)}
	if err := f(tx); err != nil {
		return err
	}
	for k, v := range tx.staged {
		if v == nil {
			delete(s.data, k)
		} else {
			s.data[k] = v
		}
	}
	return nil
}

// memTx reads through its staged writes, a nil staged value is a delete.
type memTx struct {
	data   map[string][]byte
	staged map[string][]byte
}

func (t *memTx) lookup(key string) ([]byte, bool) {
	if v, ok := t.staged[key]; ok {
		return v, v != nil
	}
	v, ok := t.data[key]
	return v, ok
}

func (t *memTx) Get(key string) (*KeyValue, error) {
	v, ok := t.lookup(key)
	if !ok {
		return nil, ErrNoKeyExists
	}
	return &KeyValue{Key: key, Value: clone(v)}, nil
}

func (t *memTx) Exists(key string) (bool, error) {
	_, ok := t.lookup(key)
	return ok, nil
}

func (t *memTx) List(prefix string) ([]*KeyValue, error) {
	keys := make(map[string]bool)
	for k := range t.data {
		keys[k] = true
	}
	for k := range t.staged {
		keys[k] = true
	}
	var kvs []*KeyValue
	for k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if v, ok := t.lookup(k); ok {
			kvs = append(kvs, &KeyValue{Key: k, Value: clone(v)})
		}
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })
	return kvs, nil
}

func (t *memTx) Put(key string, value []byte) error {
	t.staged[key] = clone(value)
	return nil
}

func (t *memTx) Delete(key string) error {
	t.staged[key] = nil
	return nil
}
