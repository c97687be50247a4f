package articles

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryArticleRepository keeps articles in process memory. Records are
// copied on the way in and out.
type MemoryArticleRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Article
	bySlug map[string]uuid.UUID
}

var _ ArticleRepository = (*MemoryArticleRepository)(nil)

// NewMemoryArticleRepository returns an empty repository.
func NewMemoryArticleRepository() *MemoryArticleRepository {
	return &MemoryArticleRepository{
		byID:   make(map[uuid.UUID]*Article),
		bySlug: make(map[string]uuid.UUID),
	}
}

func (m *MemoryArticleRepository) Create(_ context.Context, record *Article) (*Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := cloneArticle(record)
	m.byID[stored.ID] = stored
	m.bySlug[stored.Slug] = stored.ID
	return cloneArticle(stored), nil
}

func (m *MemoryArticleRepository) GetByID(_ context.Context, id uuid.UUID) (*Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{Resource: "article", Key: id.String()}
	}
	return cloneArticle(rec), nil
}

func (m *MemoryArticleRepository) GetBySlug(_ context.Context, slug string) (*Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.bySlug[slug]
	if !ok {
		return nil, &NotFoundError{Resource: "article", Key: slug}
	}
	return cloneArticle(m.byID[id]), nil
}

func (m *MemoryArticleRepository) Update(_ context.Context, record *Article) (*Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byID[record.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "article", Key: record.ID.String()}
	}
	if existing.Slug != record.Slug {
		delete(m.bySlug, existing.Slug)
	}
	stored := cloneArticle(record)
	m.byID[stored.ID] = stored
	m.bySlug[stored.Slug] = stored.ID
	return cloneArticle(stored), nil
}

func (m *MemoryArticleRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return &NotFoundError{Resource: "article", Key: id.String()}
	}
	delete(m.bySlug, rec.Slug)
	delete(m.byID, id)
	return nil
}

func (m *MemoryArticleRepository) ListByStatus(_ context.Context, status Status) ([]*Article, error) {
	out := m.collect(func(a *Article) bool { return a.Status == status })
	slices.SortFunc(out, func(a, b *Article) int { return cmp.Compare(a.Slug, b.Slug) })
	return out, nil
}

func (m *MemoryArticleRepository) ListByStatusAndTag(_ context.Context, status Status, tag string, limit int) ([]*Article, error) {
	out := m.collect(func(a *Article) bool { return a.Status == status && a.HasTag(tag) })
	slices.SortFunc(out, func(a, b *Article) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryArticleRepository) collect(keep func(*Article) bool) []*Article {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Article, 0, len(m.byID))
	for _, rec := range m.byID {
		if keep(rec) {
			out = append(out, cloneArticle(rec))
		}
	}
	return out
}
