package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	parts  map[string]map[string]Record
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{parts: make(map[string]map[string]Record)}
}

func (m *MemoryStore) Get(_ context.Context, pk, sk string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}
	rec, ok := m.parts[pk][sk]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return &rec, nil
}

func (m *MemoryStore) Put(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	now := timeNow().UTC()
	part := m.partition(rec.PK)
	if prev, ok := part[rec.SK]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Body = append([]byte(nil), rec.Body...)
	part[rec.SK] = rec
	return nil
}

func (m *MemoryStore) Create(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	part := m.partition(rec.PK)
	if _, ok := part[rec.SK]; ok {
		return fmt.Errorf("records: create %s/%s: %w", rec.PK, rec.SK, ErrConflict)
	}
	now := timeNow().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	rec.Body = append([]byte(nil), rec.Body...)
	part[rec.SK] = rec
	return nil
}

func (m *MemoryStore) Query(_ context.Context, pk, prefix string, opts QueryOptions) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}
	part := m.parts[pk]
	keys := make([]string, 0, len(part))
	for sk := range part {
		if strings.HasPrefix(sk, prefix) {
			keys = append(keys, sk)
		}
	}
	sort.Strings(keys)
	if opts.Reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}

	out := make([]Record, 0, len(keys))
	for _, sk := range keys {
		rec := part[sk]
		rec.Body = append([]byte(nil), rec.Body...)
		out = append(out, rec)
	}
	return out, nil
}

// Close marks the store unusable. Subsequent calls fail.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStore) partition(pk string) map[string]Record {
	part, ok := m.parts[pk]
	if !ok {
		part = make(map[string]Record)
		m.parts[pk] = part
	}
	return part
}

var errClosed = errors.New("records: store closed")
