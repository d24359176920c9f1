package vectorstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/SaiNageswarS/course-rag/embed"
)

// MemoryStore keeps every collection in process memory.
type MemoryStore struct {
	embedder embed.Embedder

	mu          sync.Mutex
	collections map[string]*memoryCollection
}

func NewMemoryStore(embedder embed.Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder, collections: map[string]*memoryCollection{}}
}

func (s *MemoryStore) Collection(_ context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{name: name, embedder: s.embedder, entries: map[string]memoryEntry{}}
		s.collections[name] = c
	}
	return c, nil
}

func (s *MemoryStore) Close() error { return nil }

type memoryEntry struct {
	record Record
	vector []float32
}

type memoryCollection struct {
	name     string
	embedder embed.Embedder

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range records {
		r.Metadata = maps.Clone(r.Metadata)
		c.entries[r.ID] = memoryEntry{record: r, vector: vectors[i]}
	}
	return nil
}

func (c *memoryCollection) Query(ctx context.Context, text string, k int, filter Filter) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := c.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	query := vectors[0]

	c.mu.RLock()
	defer c.mu.RUnlock()

	return nearest(k, func(offer func(Hit)) {
		for _, e := range c.entries {
			if !filter.Matches(e.record.Metadata) {
				continue
			}
			offer(Hit{Record: e.record, Distance: embed.CosineDistance(query, e.vector)})
		}
	}), nil
}

func (c *memoryCollection) Get(_ context.Context, ids []string) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.entries[id]; ok {
			out = append(out, e.record)
		}
	}
	return out, nil
}

func (c *memoryCollection) List(_ context.Context) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := slices.Collect(maps.Keys(c.entries))
	sort.Strings(ids)

	out := make([]Record, len(ids))
	for i, id := range ids {
		out[i] = c.entries[id].record
	}
	return out, nil
}

func (c *memoryCollection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

func (c *memoryCollection) Delete(_ context.Context, filter Filter) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, e := range c.entries {
		if filter.Matches(e.record.Metadata) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (c *memoryCollection) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]memoryEntry{}
	return nil
}
