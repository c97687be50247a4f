package articles

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

// Service manages articles and answers the queries used by the generator.
type Service interface {
	Create(ctx context.Context, req CreateArticleRequest) (*Article, error)
	Get(ctx context.Context, id uuid.UUID) (*Article, error)
	GetBySlug(ctx context.Context, slug string) (*Article, error)
	Update(ctx context.Context, req UpdateArticleRequest) (*Article, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListPublished(ctx context.Context) ([]*Article, error)
	ListPublishedByTag(ctx context.Context, tag string, limit int) ([]*Article, error)
}

// CreateArticleRequest carries the fields for a new article. An empty Slug is
// derived from Title; an empty Status means draft.
type CreateArticleRequest struct {
	Title           string
	Slug            string
	Summary         string
	ContentHTML     string
	ContentMarkdown string
	CoverImage      string
	Status          Status
	Tags            []string
}

// UpdateArticleRequest changes the fields that are set. A nil Tags leaves the
// tag list alone; an empty non-nil slice clears it.
type UpdateArticleRequest struct {
	ID              uuid.UUID
	Title           *string
	Slug            *string
	Summary         *string
	ContentHTML     *string
	ContentMarkdown *string
	CoverImage      *string
	Status          *Status
	Tags            []string
}

var (
	ErrTitleRequired     = errors.New("articles: title is required")
	ErrSlugRequired      = errors.New("articles: slug is required")
	ErrSlugInvalid       = errors.New("articles: slug contains invalid characters")
	ErrSlugExists        = errors.New("articles: slug already exists")
	ErrStatusInvalid     = errors.New("articles: unknown status")
	ErrArticleIDRequired = errors.New("articles: article id required")
)

// ServiceOption configures the service.
type ServiceOption func(*service)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides uuid.New.
func WithIDGenerator(gen func() uuid.UUID) ServiceOption {
	return func(s *service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithVersionLimit caps the number of stored versions per article, dropping
// the oldest first. Zero keeps every version.
func WithVersionLimit(limit int) ServiceOption {
	return func(s *service) {
		if limit >= 0 {
			s.versionLimit = limit
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo         ArticleRepository
	now          func() time.Time
	newID        func() uuid.UUID
	versionLimit int
	logger       interfaces.Logger
}

// NewService builds the article service on top of repo.
func NewService(repo ArticleRepository, opts ...ServiceOption) Service {
	s := &service{
		repo:   repo,
		now:    time.Now,
		newID:  uuid.New,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, req CreateArticleRequest) (*Article, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	status := req.Status
	if status == "" {
		status = StatusDraft
	}
	if !status.Valid() {
		return nil, ErrStatusInvalid
	}

	slugValue, err := resolveSlug(req.Slug, title)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, slugValue, uuid.Nil); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &Article{
		ID:              s.newID(),
		Title:           title,
		Slug:            slugValue,
		Summary:         strings.TrimSpace(req.Summary),
		ContentHTML:     req.ContentHTML,
		ContentMarkdown: req.ContentMarkdown,
		CoverImage:      strings.TrimSpace(req.CoverImage),
		Status:          status,
		Tags:            normalizeTags(req.Tags),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if status == StatusPublished {
		record.PublishedAt = &now
	}

	if err := validateArticle(record); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("article.created", "slug", created.Slug, "status", string(created.Status))
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Article, error) {
	if id == uuid.Nil {
		return nil, ErrArticleIDRequired
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, slugValue string) (*Article, error) {
	slugValue = strings.TrimSpace(slugValue)
	if slugValue == "" {
		return nil, ErrSlugRequired
	}
	return s.repo.GetBySlug(ctx, slugValue)
}

// Update snapshots the stored article into its version history, then applies
// the requested changes.
func (s *service) Update(ctx context.Context, req UpdateArticleRequest) (*Article, error) {
	if req.ID == uuid.Nil {
		return nil, ErrArticleIDRequired
	}
	current, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	next := cloneArticle(current)
	next.Versions = append(next.Versions, current.snapshot(nextVersionNumber(current.Versions), now))
	if s.versionLimit > 0 && len(next.Versions) > s.versionLimit {
		next.Versions = slices.Clone(next.Versions[len(next.Versions)-s.versionLimit:])
	}

	if req.Title != nil {
		next.Title = strings.TrimSpace(*req.Title)
		if next.Title == "" {
			return nil, ErrTitleRequired
		}
	}
	if req.Slug != nil {
		slugValue, err := resolveSlug(*req.Slug, next.Title)
		if err != nil {
			return nil, err
		}
		if slugValue != current.Slug {
			if err := s.ensureSlugFree(ctx, slugValue, current.ID); err != nil {
				return nil, err
			}
		}
		next.Slug = slugValue
	}
	if req.Summary != nil {
		next.Summary = strings.TrimSpace(*req.Summary)
	}
	if req.ContentHTML != nil {
		next.ContentHTML = *req.ContentHTML
	}
	if req.ContentMarkdown != nil {
		next.ContentMarkdown = *req.ContentMarkdown
	}
	if req.CoverImage != nil {
		next.CoverImage = strings.TrimSpace(*req.CoverImage)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, ErrStatusInvalid
		}
		next.Status = *req.Status
	}
	if req.Tags != nil {
		next.Tags = normalizeTags(req.Tags)
	}
	if next.Status == StatusPublished && next.PublishedAt == nil {
		next.PublishedAt = &now
	}
	next.UpdatedAt = now

	if err := validateArticle(next); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("article.updated", "slug", updated.Slug, "versions", len(updated.Versions))
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrArticleIDRequired
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) ListPublished(ctx context.Context) ([]*Article, error) {
	return s.repo.ListByStatus(ctx, StatusPublished)
}

func (s *service) ListPublishedByTag(ctx context.Context, tag string, limit int) ([]*Article, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, nil
	}
	return s.repo.ListByStatusAndTag(ctx, StatusPublished, tag, limit)
}

func (s *service) ensureSlugFree(ctx context.Context, slugValue string, owner uuid.UUID) error {
	existing, err := s.repo.GetBySlug(ctx, slugValue)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	if existing.ID != owner {
		return ErrSlugExists
	}
	return nil
}

func resolveSlug(raw, title string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		derived, err := slug.Normalize(title)
		if err != nil || derived == "" {
			return "", ErrSlugRequired
		}
		return derived, nil
	}
	if !slug.IsValid(raw) {
		return "", ErrSlugInvalid
	}
	return raw, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func nextVersionNumber(versions []Version) int {
	highest := 0
	for _, v := range versions {
		highest = max(highest, v.Number)
	}
	return highest + 1
}

func validateArticle(a *Article) error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Title, validation.Required, validation.Length(1, 300)),
		validation.Field(&a.Slug, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.Summary, validation.Length(0, 1000)),
		validation.Field(&a.CoverImage, validation.Length(0, 2048)),
		validation.Field(&a.Status, validation.Required, validation.In(StatusDraft, StatusPublished, StatusArchived)),
	)
}
