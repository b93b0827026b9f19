package receipts

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is a thread-safe, in-memory Store.
type MemoryStore struct {
	receipts sync.Map // Key: package name, Value: Receipt
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Put(ctx context.Context, r Receipt) error {
	r.BuildDeps = slices.Clone(r.BuildDeps)
	r.RuntimeDeps = slices.Clone(r.RuntimeDeps)
	s.receipts.Store(r.Name, r)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, name string) (Receipt, error) {
	v, ok := s.receipts.Load(name)
	if !ok {
		return Receipt{}, ErrNotFound
	}
	return v.(Receipt), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Receipt, error) {
	var out []Receipt
	s.receipts.Range(func(_, v any) bool {
		out = append(out, v.(Receipt))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
