package articles

import (
	"context"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ArticleRepository is the persistence contract used by Service.
type ArticleRepository interface {
	Create(ctx context.Context, record *Article) (*Article, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Article, error)
	GetBySlug(ctx context.Context, slug string) (*Article, error)
	Update(ctx context.Context, record *Article) (*Article, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByStatus returns every article in status ordered by slug.
	ListByStatus(ctx context.Context, status Status) ([]*Article, error)
	// ListByStatusAndTag returns up to limit articles in status carrying tag,
	// most recently updated first. A limit <= 0 means no limit.
	ListByStatusAndTag(ctx context.Context, status Status, tag string, limit int) ([]*Article, error)
}

// NotFoundError is returned by repositories when a lookup misses.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// NewArticleRepository builds the go-repository-bun repository for articles,
// keyed by slug.
func NewArticleRepository(db *bun.DB) repository.Repository[*Article] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Article]{
		NewRecord: func() *Article { return &Article{} },
		GetID: func(a *Article) uuid.UUID {
			return a.ID
		},
		SetID: func(a *Article, id uuid.UUID) {
			a.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(a *Article) string {
			return a.Slug
		},
	})
}
