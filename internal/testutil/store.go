package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/samber/lo"
)

// FilterFunc reports whether item matches filter
type FilterFunc[T any] func(ctx context.Context, item T, filter interface{}) bool

// SortFunc orders two items, returning true when i goes first
type SortFunc[T any] func(i, j T) bool

// paginated is satisfied by every filter that embeds *types.QueryFilter
type paginated interface {
	GetLimit() int
	GetOffset() int
}

// InMemoryStore is a map of rows keyed by id, safe for concurrent use.
// Stored values are returned as they are; callers copy when they need to.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{items: make(map[string]T)}
}

func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; ok {
		return ierr.NewErrorf("item %s already exists", id).
			WithHintf("A record with id %s already exists", id).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return item, notFound(id)
	}
	return item, nil
}

// List returns the matching items ordered by sortFn. When filter is
// paginated only the requested page is returned.
func (s *InMemoryStore[T]) List(ctx context.Context, filter interface{}, filterFn FilterFunc[T], sortFn SortFunc[T]) ([]T, error) {
	result := s.matching(ctx, filter, filterFn)
	if sortFn != nil {
		sort.SliceStable(result, func(i, j int) bool {
			return sortFn(result[i], result[j])
		})
	}

	page, ok := filter.(paginated)
	if !ok {
		return result, nil
	}
	offset := page.GetOffset()
	if offset >= len(result) {
		return []T{}, nil
	}
	end := min(offset+page.GetLimit(), len(result))
	return result[offset:end], nil
}

func (s *InMemoryStore[T]) Count(ctx context.Context, filter interface{}, filterFn FilterFunc[T]) (int, error) {
	return len(s.matching(ctx, filter, filterFn)), nil
}

// Update replaces an existing item
func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return notFound(id)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.items)
}

func (s *InMemoryStore[T]) matching(ctx context.Context, filter interface{}, filterFn FilterFunc[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := lo.Values(s.items)
	if filterFn == nil {
		return all
	}
	return lo.Filter(all, func(item T, _ int) bool {
		return filterFn(ctx, item, filter)
	})
}

func notFound(id string) error {
	return ierr.NewErrorf("item %s not found", id).
		WithHintf("No record with id %s", id).
		Mark(ierr.ErrNotFound)
}
