package tags

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TagRepository is the persistence contract used by Service.
type TagRepository interface {
	Create(ctx context.Context, record *Tag) (*Tag, error)
	GetBySlug(ctx context.Context, slug string) (*Tag, error)
	Update(ctx context.Context, record *Tag) (*Tag, error)
	// List returns every tag ordered by slug.
	List(ctx context.Context) ([]*Tag, error)
	// ListBySlugs returns the tags matching slugs in no particular order.
	ListBySlugs(ctx context.Context, slugs []string) ([]*Tag, error)
}

// NewTagRepository builds the go-repository-bun repository for tags.
func NewTagRepository(db *bun.DB) repository.Repository[*Tag] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Tag]{
		NewRecord: func() *Tag { return &Tag{} },
		GetID: func(t *Tag) uuid.UUID {
			return t.ID
		},
		SetID: func(t *Tag, id uuid.UUID) {
			t.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(t *Tag) string {
			return t.Slug
		},
	})
}
