package articles

import (
	"context"
	"encoding/json"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	cache "github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const articleNamespace = "article"

// BunArticleRepository stores articles through bun. Point lookups go through
// the optional cache; list queries always hit the database.
type BunArticleRepository struct {
	db           *bun.DB
	repo         repository.Repository[*Article]
	lists        repository.Repository[*Article]
	cacheService cache.CacheService
	cachePrefix  string
}

var _ ArticleRepository = (*BunArticleRepository)(nil)

// NewBunArticleRepository creates an uncached repository.
func NewBunArticleRepository(db *bun.DB) *BunArticleRepository {
	return NewBunArticleRepositoryWithCache(db, nil, nil)
}

// NewBunArticleRepositoryWithCache wraps point lookups with go-repository-cache
// when both cacheService and serializer are set.
func NewBunArticleRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunArticleRepository {
	base := NewArticleRepository(db)
	r := &BunArticleRepository{db: db, repo: base, lists: base}
	if cacheService != nil && serializer != nil {
		r.repo = repositorycache.New(base, cacheService, serializer)
		r.cacheService = cacheService
		r.cachePrefix = articleNamespace + cache.KeySeparator
	}
	return r
}

func (r *BunArticleRepository) Create(ctx context.Context, record *Article) (*Article, error) {
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, mapRepositoryError(err, record.Slug)
	}
	return created, r.InvalidateCache(ctx)
}

func (r *BunArticleRepository) GetByID(ctx context.Context, id uuid.UUID) (*Article, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return record, nil
}

func (r *BunArticleRepository) GetBySlug(ctx context.Context, slug string) (*Article, error) {
	record, err := r.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, slug)
	}
	return record, nil
}

func (r *BunArticleRepository) Update(ctx context.Context, record *Article) (*Article, error) {
	updated, err := r.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns(
			"title", "slug", "summary", "content_html", "content_markdown",
			"cover_image", "status", "tags", "versions", "published_at", "updated_at",
		),
	)
	if err != nil {
		return nil, mapRepositoryError(err, record.ID.String())
	}
	return updated, r.InvalidateCache(ctx)
}

func (r *BunArticleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.repo.Delete(ctx, &Article{ID: id}); err != nil {
		return mapRepositoryError(err, id.String())
	}
	return r.InvalidateCache(ctx)
}

func (r *BunArticleRepository) ListByStatus(ctx context.Context, status Status) ([]*Article, error) {
	records, _, err := r.lists.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.status = ?", status).
				OrderExpr("?TableAlias.slug ASC")
		}),
		selectAll,
	)
	if err != nil {
		return nil, fmt.Errorf("article repository error: %w", err)
	}
	return records, nil
}

func (r *BunArticleRepository) ListByStatusAndTag(ctx context.Context, status Status, tag string, limit int) ([]*Article, error) {
	filter := repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("?TableAlias.status = ?", status)
		q = r.whereHasTag(q, tag)
		return q.OrderExpr("?TableAlias.updated_at DESC").
			OrderExpr("?TableAlias.slug ASC")
	})

	var (
		records []*Article
		err     error
	)
	if limit > 0 {
		records, _, err = r.lists.List(ctx, filter, repository.SelectPaginate(limit, 0))
	} else {
		records, _, err = r.lists.List(ctx, filter, selectAll)
	}
	if err != nil {
		return nil, fmt.Errorf("article repository error: %w", err)
	}
	return records, nil
}

// selectAll clears the repository's default page size.
var selectAll = repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Limit(0).Offset(0)
})

// whereHasTag filters on membership in the JSON tags column. Postgres uses
// jsonb containment; sqlite expands the array with json_each.
func (r *BunArticleRepository) whereHasTag(q *bun.SelectQuery, tag string) *bun.SelectQuery {
	if r.db != nil && r.db.Dialect().Name() == dialect.PG {
		needle, _ := json.Marshal([]string{tag})
		return q.Where("?TableAlias.tags @> ?::jsonb", string(needle))
	}
	return q.Where("EXISTS (SELECT 1 FROM json_each(?TableAlias.tags) WHERE json_each.value = ?)", tag)
}

// InvalidateCache drops cached article lookups.
func (r *BunArticleRepository) InvalidateCache(ctx context.Context) error {
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
		return &NotFoundError{Resource: "article", Key: key}
	}
	return fmt.Errorf("article repository error: %w", err)
}
