package tags

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	cache "github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/uptrace/bun"
)

const tagNamespace = "tag"

// BunTagRepository stores tags through bun with optional caching of point
// lookups.
type BunTagRepository struct {
	repo         repository.Repository[*Tag]
	lists        repository.Repository[*Tag]
	cacheService cache.CacheService
	cachePrefix  string
}

var _ TagRepository = (*BunTagRepository)(nil)

// NewBunTagRepository creates an uncached repository.
func NewBunTagRepository(db *bun.DB) *BunTagRepository {
	return NewBunTagRepositoryWithCache(db, nil, nil)
}

// NewBunTagRepositoryWithCache creates a repository backed by go-repository-cache.
func NewBunTagRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunTagRepository {
	base := NewTagRepository(db)
	r := &BunTagRepository{repo: base, lists: base}
	if cacheService != nil && serializer != nil {
		r.repo = repositorycache.New(base, cacheService, serializer)
		r.cacheService = cacheService
		r.cachePrefix = tagNamespace + cache.KeySeparator
	}
	return r
}

func (r *BunTagRepository) Create(ctx context.Context, record *Tag) (*Tag, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, mapRepositoryError(err, record.Slug)
	}
	return created, r.InvalidateCache(ctx)
}

func (r *BunTagRepository) GetBySlug(ctx context.Context, slug string) (*Tag, error) {
	record, err := r.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, slug)
	}
	return record, nil
}

func (r *BunTagRepository) Update(ctx context.Context, record *Tag) (*Tag, error) {
	updated, err := r.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns("name", "description", "required_fields", "is_system", "updated_at"),
	)
	if err != nil {
		return nil, mapRepositoryError(err, record.Slug)
	}
	return updated, r.InvalidateCache(ctx)
}

func (r *BunTagRepository) List(ctx context.Context) ([]*Tag, error) {
	records, _, err := r.lists.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.slug ASC")
		}),
		selectAll,
	)
	if err != nil {
		return nil, fmt.Errorf("tag repository error: %w", err)
	}
	return records, nil
}

func (r *BunTagRepository) ListBySlugs(ctx context.Context, slugs []string) ([]*Tag, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	records, _, err := r.lists.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.slug IN (?)", bun.In(slugs))
		}),
		selectAll,
	)
	if err != nil {
		return nil, fmt.Errorf("tag repository error: %w", err)
	}
	return records, nil
}

// selectAll clears the repository's default page size.
var selectAll = repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Limit(0).Offset(0)
})

// InvalidateCache drops cached tag lookups.
func (r *BunTagRepository) InvalidateCache(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: "tag", Key: key}
	}
	return fmt.Errorf("tag repository error: %w", err)
}
