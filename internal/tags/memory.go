package tags

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// MemoryTagRepository keeps tags in process memory, keyed by slug.
type MemoryTagRepository struct {
	mu     sync.RWMutex
	bySlug map[string]*Tag
}

var _ TagRepository = (*MemoryTagRepository)(nil)

// NewMemoryTagRepository returns an empty repository.
func NewMemoryTagRepository() *MemoryTagRepository {
	return &MemoryTagRepository{bySlug: make(map[string]*Tag)}
}

func (m *MemoryTagRepository) Create(_ context.Context, record *Tag) (*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySlug[record.Slug] = cloneTag(record)
	return cloneTag(record), nil
}

func (m *MemoryTagRepository) GetBySlug(_ context.Context, slug string) (*Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.bySlug[slug]
	if !ok {
		return nil, &NotFoundError{Resource: "tag", Key: slug}
	}
	return cloneTag(rec), nil
}

func (m *MemoryTagRepository) Update(_ context.Context, record *Tag) (*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySlug[record.Slug]; !ok {
		return nil, &NotFoundError{Resource: "tag", Key: record.Slug}
	}
	m.bySlug[record.Slug] = cloneTag(record)
	return cloneTag(record), nil
}

func (m *MemoryTagRepository) List(_ context.Context) ([]*Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Tag, 0, len(m.bySlug))
	for _, rec := range m.bySlug {
		out = append(out, cloneTag(rec))
	}
	slices.SortFunc(out, func(a, b *Tag) int { return cmp.Compare(a.Slug, b.Slug) })
	return out, nil
}

func (m *MemoryTagRepository) ListBySlugs(_ context.Context, slugs []string) ([]*Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Tag
	for _, slug := range slugs {
		if rec, ok := m.bySlug[slug]; ok {
			out = append(out, cloneTag(rec))
		}
	}
	return out, nil
}
