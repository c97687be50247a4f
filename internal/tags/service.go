package tags

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

// Service manages tags and the configured system tag set.
type Service interface {
	Create(ctx context.Context, req CreateTagRequest) (*Tag, error)
	GetBySlug(ctx context.Context, slug string) (*Tag, error)
	List(ctx context.Context) ([]*Tag, error)
	// FindSystemBySlugs returns the system tags among slugs. Missing and
	// non-system tags are left out; order is unspecified.
	FindSystemBySlugs(ctx context.Context, slugs []string) ([]*Tag, error)
	SyncSystemTags(ctx context.Context, defs []SystemTagDefinition) (*SyncReport, error)
}

// CreateTagRequest describes a new tag. Name defaults to the slug.
type CreateTagRequest struct {
	Slug        string
	Name        string
	Description string
	IsSystem    bool
}

var (
	ErrSlugRequired = errors.New("tags: slug is required")
	ErrSlugInvalid  = errors.New("tags: slug contains invalid characters")
	ErrSlugExists   = errors.New("tags: slug already exists")
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

// WithLogger sets the logger.
func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo   TagRepository
	now    func() time.Time
	logger interfaces.Logger
}

// NewService builds the tag service on top of repo.
func NewService(repo TagRepository, opts ...ServiceOption) Service {
	s := &service{repo: repo, now: time.Now, logger: logging.NoOp()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, req CreateTagRequest) (*Tag, error) {
	slugValue := strings.TrimSpace(req.Slug)
	if slugValue == "" {
		return nil, ErrSlugRequired
	}
	if _, err := s.repo.GetBySlug(ctx, slugValue); err == nil {
		return nil, ErrSlugExists
	} else if !isNotFound(err) {
		return nil, err
	}

	return s.insert(ctx, &Tag{
		Slug:        slugValue,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		IsSystem:    req.IsSystem,
	})
}

func (s *service) insert(ctx context.Context, record *Tag) (*Tag, error) {
	if !slug.IsValid(record.Slug) {
		return nil, ErrSlugInvalid
	}
	if record.Name == "" {
		record.Name = record.Slug
	}
	if record.RequiredFields == nil {
		record.RequiredFields = []string{}
	}
	now := s.now().UTC()
	record.ID = uuid.New()
	record.CreatedAt = now
	record.UpdatedAt = now
	return s.repo.Create(ctx, record)
}

func (s *service) GetBySlug(ctx context.Context, slugValue string) (*Tag, error) {
	slugValue = strings.TrimSpace(slugValue)
	if slugValue == "" {
		return nil, ErrSlugRequired
	}
	return s.repo.GetBySlug(ctx, slugValue)
}

func (s *service) List(ctx context.Context) ([]*Tag, error) {
	return s.repo.List(ctx)
}

func (s *service) FindSystemBySlugs(ctx context.Context, slugs []string) ([]*Tag, error) {
	records, err := s.repo.ListBySlugs(ctx, slugs)
	if err != nil {
		return nil, err
	}
	out := records[:0]
	for _, rec := range records {
		if rec.IsSystem {
			out = append(out, rec)
		}
	}
	return out, nil
}

func isNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
