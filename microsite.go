// Package microsite renders published articles into a static site, expanding
// microtemplate markers embedded in their HTML.
package microsite

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-microsite/internal/articles"
	sitecmd "github.com/goliatone/go-microsite/internal/commands/site"
	"github.com/goliatone/go-microsite/internal/di"
	"github.com/goliatone/go-microsite/internal/importer"
	"github.com/goliatone/go-microsite/internal/microtemplates"
	"github.com/goliatone/go-microsite/internal/tags"
	"github.com/goliatone/go-microsite/pkg/generator"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

type (
	// ArticleService exports the article store contract.
	ArticleService = articles.Service
	// TagService exports the tag store contract.
	TagService = tags.Service
	// GenerateResult reports one generator run.
	GenerateResult = generator.Result
	// SyncReport lists the tags touched by a system tag sync.
	SyncReport = tags.SyncReport
	// ImportReport lists the articles touched by a Markdown import.
	ImportReport = importer.Report
)

// Option customises the module wiring.
type Option = di.Option

// WithBunDB uses an existing database instead of opening one.
func WithBunDB(db *bun.DB) Option {
	return di.WithBunDB(db)
}

// WithMemoryStorage keeps articles and tags in memory.
func WithMemoryStorage() Option {
	return di.WithMemoryStorage()
}

// WithLoggerProvider overrides the configured logger provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return di.WithLoggerProvider(provider)
}

// ImportOptions tunes Import.
type ImportOptions struct {
	// DefaultStatus applies to documents without a status: draft,
	// published or archived. Empty means draft.
	DefaultStatus string
	Recursive     bool
}

// Module represents the top level microsite runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a module using the provided configuration and optional overrides.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(context.Background(), cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Articles returns the article service.
func (m *Module) Articles() ArticleService {
	return m.container.ArticleService()
}

// Tags returns the tag service.
func (m *Module) Tags() TagService {
	return m.container.TagService()
}

// Generator returns the static site generator.
func (m *Module) Generator() generator.Service {
	return m.container.GeneratorService()
}

// Generate runs the generator once. The result is returned even when the run
// fails so callers can report per-article failures.
func (m *Module) Generate(ctx context.Context) (*GenerateResult, error) {
	var result *GenerateResult
	err := m.container.GenerateHandler().Execute(ctx, sitecmd.GenerateSiteCommand{
		ResultCallback: func(r *GenerateResult) { result = r },
	})
	if metricsErr := m.container.WriteMetricsTextfile(); metricsErr != nil {
		m.container.Logger().Warn("metrics.textfile.failed", "error", metricsErr)
	}
	return result, err
}

// SyncSystemTags syncs the store with the system tag file at path, or with
// the configured file when path is empty.
func (m *Module) SyncSystemTags(ctx context.Context, path string) (*SyncReport, error) {
	if strings.TrimSpace(path) == "" {
		path = m.container.Config.SystemTagsPath
	}
	var report *SyncReport
	err := m.container.SyncSystemTagsHandler().Execute(ctx, sitecmd.SyncSystemTagsCommand{
		Path:           path,
		ResultCallback: func(r *SyncReport) { report = r },
	})
	return report, err
}

// Import creates or updates articles from the Markdown files in dir.
func (m *Module) Import(ctx context.Context, dir string, opts ImportOptions) (*ImportReport, error) {
	var report *ImportReport
	err := m.container.ImportHandler().Execute(ctx, sitecmd.ImportArticlesCommand{
		Dir:            dir,
		DefaultStatus:  articles.Status(strings.ToLower(strings.TrimSpace(opts.DefaultStatus))),
		Recursive:      opts.Recursive,
		ResultCallback: func(r *ImportReport) { report = r },
	})
	return report, err
}

// ValidateRegistry parses the registry at path, or the configured registry
// when path is empty, and returns the number of entries.
func (m *Module) ValidateRegistry(ctx context.Context, path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		path = m.container.Config.Generator.RegistryPath
	}
	entries := 0
	err := m.container.ValidateRegistryHandler().Execute(ctx, sitecmd.ValidateRegistryCommand{
		Path:           path,
		ResultCallback: func(r *microtemplates.Registry) { entries = r.Len() },
	})
	return entries, err
}

// Close releases the database opened by New.
func (m *Module) Close() error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close()
}
