// Package vectorstore holds named collections of embedded text records and
// answers nearest-neighbour queries with optional metadata filters.
package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/SaiNageswarS/go-collection-boot/ds"
)

// Record is one stored text with its metadata. Metadata values are strings
// or numbers.
type Record struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Hit is a query result. Distance is the cosine distance, smaller is closer.
type Hit struct {
	Record
	Distance float64
}

// Filter matches records whose metadata equals every key/value pair.
type Filter map[string]any

type Collection interface {
	Name() string
	// Upsert embeds and stores records, replacing any with the same id.
	Upsert(ctx context.Context, records []Record) error
	// Query returns up to k records nearest to text that match filter,
	// ordered by ascending distance then id.
	Query(ctx context.Context, text string, k int, filter Filter) ([]Hit, error)
	// Get returns the records with the given ids; unknown ids are skipped.
	Get(ctx context.Context, ids []string) ([]Record, error)
	// List returns every record ordered by id.
	List(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int, error)
	// Delete removes the records matching filter and returns how many were
	// removed. An empty filter matches every record.
	Delete(ctx context.Context, filter Filter) (int, error)
	Reset(ctx context.Context) error
}

type Store interface {
	Collection(ctx context.Context, name string) (Collection, error)
	Close() error
}

// Matches reports whether metadata satisfies the filter. Numbers compare by
// value regardless of their Go type.
func (f Filter) Matches(metadata map[string]any) bool {
	for k, want := range f {
		got, ok := metadata[k]
		if !ok || !equalValue(got, want) {
			return false
		}
	}
	return true
}

func equalValue(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	if aNum || bNum {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// IntValue reads a numeric metadata value as int.
func IntValue(metadata map[string]any, key string) (int, bool) {
	f, ok := toFloat(metadata[key])
	return int(f), ok
}

// StringValue reads a string metadata value.
func StringValue(metadata map[string]any, key string) string {
	s, _ := metadata[key].(string)
	return s
}

// farther orders hits worst first: larger distance, then larger id.
func farther(a, b Hit) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

// nearest keeps the k closest hits offered by scan. The heap root is always
// the worst kept hit so it can be evicted.
func nearest(k int, scan func(offer func(Hit))) []Hit {
	h := ds.NewMinHeap(farther)
	scan(func(hit Hit) {
		h.Push(hit)
		if h.Len() > k {
			h.Pop()
		}
	})

	hits := h.ToSortedSlice()
	sort.SliceStable(hits, func(i, j int) bool { return farther(hits[j], hits[i]) })
	return hits
}
