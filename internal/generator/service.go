package generator

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-microsite/internal/articles"
	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/internal/menus"
	"github.com/goliatone/go-microsite/internal/metrics"
	"github.com/goliatone/go-microsite/internal/microtemplates"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

const tracerName = "github.com/goliatone/go-microsite/internal/generator"

// Service describes the static site generator contract.
type Service interface {
	Generate(ctx context.Context) (*Result, error)
}

// Config captures runtime settings for the generator.
type Config struct {
	OutputDir string
	AssetsDir string
	// Assets are copied from AssetsDir. nil means DefaultAssets.
	Assets []string
	// MenuSlugs selects the system tags shown as menu sections. nil means
	// menus.DefaultSlugs.
	MenuSlugs []string
	MenuLimit int
}

// ArticleSource lists the articles to publish.
type ArticleSource interface {
	ListPublished(ctx context.Context) ([]*articles.Article, error)
}

// MenuFetcher builds the menu context for a run.
type MenuFetcher interface {
	Fetch(ctx context.Context, slugs []string, limit int) (menus.Context, error)
}

// Expander rewrites microtemplate markers inside article HTML.
type Expander interface {
	ExpandWithReport(ctx context.Context, content string) (string, microtemplates.Report)
}

// ExpanderSource builds the expander for one run, so registry and template
// edits are picked up by the next run.
type ExpanderSource interface {
	Load(ctx context.Context) *microtemplates.Expander
}

// Dependencies lists the collaborators required by the generator.
type Dependencies struct {
	Articles ArticleSource
	Menus    MenuFetcher
	// Expander is used as is for every run. Expanders, when set, takes
	// precedence and is asked for a new expander at the start of each run.
	Expander  Expander
	Expanders ExpanderSource
	Pages     PageRenderer
	// Markdown converts ContentMarkdown for articles without ContentHTML.
	Markdown interfaces.MarkdownParser
	Metrics  metrics.Recorder
	Logger   interfaces.Logger
	Tracer   trace.Tracer
}

// PageResult describes one written page.
type PageResult struct {
	Slug string
	// Path is the final location under the output directory.
	Path string
	// Hash is the hex sha256 of the page bytes.
	Hash                string
	Placeholders        int
	PlaceholderFailures int
}

// ArticleFailure records an article that could not be rendered.
type ArticleFailure struct {
	Slug string
	Err  error
}

// Result reports the outcome of a run.
type Result struct {
	State    State
	Pages    []PageResult
	Failures []ArticleFailure
	Warnings []string
	Assets   []string
	Duration time.Duration
}

// NewService wires a generator with cfg and deps.
func NewService(cfg Config, deps Dependencies) Service {
	if deps.Logger == nil {
		deps.Logger = logging.NoOp()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopRecorder{}
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}
	if cfg.Assets == nil {
		cfg.Assets = DefaultAssets()
	}
	return &service{cfg: cfg, deps: deps, now: time.Now}
}

type service struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time
}

// run holds the per-invocation state threaded through the stages.
type run struct {
	ctx      context.Context
	logger   interfaces.Logger
	result   *Result
	articles []*articles.Article
	expander Expander
	menu     menus.Context
	staging  string
	writer   artifactWriter
}

func (s *service) Generate(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := s.now()
	ctx, span := s.deps.Tracer.Start(ctx, "generator.generate")
	defer span.End()

	r := &run{
		ctx:    ctx,
		logger: s.deps.Logger,
		result: &Result{State: StateInit},
	}
	if err := s.validate(); err != nil {
		return s.fail(r, span, start, err)
	}

	stages := []stage{
		{StateInit, s.initRun},
		{StateClearOutput, s.clearOutput},
		{StateLoadMenuData, s.loadMenuData},
		{StateRenderArticles, s.renderArticles},
		{StateCopyAssets, s.copyAssets},
		{StateDone, s.publish},
	}
	for _, st := range stages {
		r.result.State = st.state
		if err := s.runStage(r, st); err != nil {
			return s.fail(r, span, start, err)
		}
	}

	r.result.Duration = s.now().Sub(start)
	s.deps.Metrics.ObserveRunDuration(r.result.Duration)
	s.deps.Metrics.IncRun(string(StateDone))
	span.SetAttributes(
		attribute.Int("generator.pages", len(r.result.Pages)),
		attribute.Int("generator.failures", len(r.result.Failures)),
	)
	r.logger.Info("generator.run.done",
		"pages", len(r.result.Pages),
		"failures", len(r.result.Failures),
		"warnings", len(r.result.Warnings),
		"duration", r.result.Duration,
	)
	return r.result, nil
}

func (s *service) validate() error {
	switch {
	case s.deps.Articles == nil:
		return ErrArticlesRequired
	case s.deps.Menus == nil:
		return ErrMenusRequired
	case s.deps.Pages == nil:
		return ErrPagesRequired
	case strings.TrimSpace(s.cfg.OutputDir) == "":
		return ErrOutputRequired
	}
	return nil
}

func (s *service) runStage(r *run, st stage) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	started := s.now()
	ctx, span := s.deps.Tracer.Start(r.ctx, "generator."+string(st.state))
	outer := r.ctx
	r.ctx = ctx
	err := st.run(r)
	r.ctx = outer
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	s.deps.Metrics.ObserveStageDuration(string(st.state), s.now().Sub(started))
	return err
}

func (s *service) fail(r *run, span trace.Span, start time.Time, err error) (*Result, error) {
	failedIn := r.result.State
	r.result.State = StateFailed
	r.result.Duration = s.now().Sub(start)
	if r.staging != "" {
		if cleanupErr := discardStaging(r.staging); cleanupErr != nil {
			r.logger.Warn("generator.staging.cleanup_failed", "path", r.staging, "error", cleanupErr)
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.deps.Metrics.ObserveRunDuration(r.result.Duration)
	s.deps.Metrics.IncRun(string(StateFailed))
	r.logger.Error("generator.run.failed", "stage", string(failedIn), "error", err)
	return r.result, fatal(failedIn, err)
}

func (s *service) initRun(r *run) error {
	if err := s.loadArticles(r); err != nil {
		return err
	}
	r.expander = s.deps.Expander
	if s.deps.Expanders != nil {
		if expander := s.deps.Expanders.Load(r.ctx); expander != nil {
			r.expander = expander
		}
	}
	return nil
}

func (s *service) loadArticles(r *run) error {
	records, err := s.deps.Articles.ListPublished(r.ctx)
	if err != nil {
		return fmt.Errorf("generator: list published articles: %w", err)
	}
	published := make([]*articles.Article, 0, len(records))
	for _, record := range records {
		if record != nil && record.Status == articles.StatusPublished {
			published = append(published, record)
		}
	}
	slices.SortStableFunc(published, func(a, b *articles.Article) int {
		return cmp.Compare(a.Slug, b.Slug)
	})
	r.articles = published
	r.logger.Info("generator.articles.loaded", "count", len(published))
	return nil
}

func (s *service) clearOutput(r *run) error {
	staging, err := prepareStaging(s.cfg.OutputDir)
	if err != nil {
		return err
	}
	r.staging = staging
	r.writer = newFSWriter(staging)
	return nil
}

func (s *service) loadMenuData(r *run) error {
	menu, err := s.deps.Menus.Fetch(r.ctx, s.cfg.MenuSlugs, s.cfg.MenuLimit)
	if err != nil {
		return fmt.Errorf("generator: load menu data: %w", err)
	}
	r.menu = menu
	return nil
}

func (s *service) renderArticles(r *run) error {
	for _, article := range r.articles {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		page, err := s.renderArticle(r, article)
		if err != nil {
			logging.WithArticle(r.logger, article.Slug, string(StateRenderArticles)).
				Error("generator.article.failed", "error", err)
			r.result.Failures = append(r.result.Failures, ArticleFailure{Slug: article.Slug, Err: err})
			s.deps.Metrics.IncPage(metrics.OutcomeFailed)
			continue
		}
		r.result.Pages = append(r.result.Pages, page)
		s.deps.Metrics.IncPage(metrics.OutcomeSuccess)
	}
	return nil
}

// renderArticle expands, renders and writes one article. Panics are turned
// into errors so a single article cannot abort the run.
func (s *service) renderArticle(r *run, article *articles.Article) (page PageResult, err error) {
	ctx, span := s.deps.Tracer.Start(r.ctx, "generator.render_article",
		trace.WithAttributes(attribute.String("article.slug", article.Slug)))
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("generator: panic rendering %s: %v", article.Slug, recovered)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !safeSlug(article.Slug) {
		return PageResult{}, fmt.Errorf("%w: %q", ErrInvalidSlug, article.Slug)
	}
	logger := logging.WithArticle(r.logger, article.Slug, string(StateRenderArticles))
	ctx = logging.ContextWithFields(ctx, map[string]any{"slug": article.Slug})

	body, err := s.articleBody(article)
	if err != nil {
		return PageResult{}, err
	}

	expanded, report := body, microtemplates.Report{}
	if r.expander != nil {
		expanded, report = r.expander.ExpandWithReport(ctx, body)
	}
	if failed := report.Failed(); failed > 0 {
		logger.Warn("generator.article.placeholders_failed", "failed", failed, "markers", report.Markers)
	}

	html, err := s.deps.Pages.Render(ctx, article, expanded, r.menu)
	if err != nil {
		return PageResult{}, fmt.Errorf("generator: render page %s: %w", article.Slug, err)
	}

	hash, err := writeString(ctx, r.writer, relativePagePath(article.Slug), categoryPage, html)
	if err != nil {
		return PageResult{}, err
	}
	logger.Debug("generator.article.written", "hash", hash)

	return PageResult{
		Slug:                article.Slug,
		Path:                outputPath(s.cfg.OutputDir, article.Slug),
		Hash:                hash,
		Placeholders:        report.Markers,
		PlaceholderFailures: report.Failed(),
	}, nil
}

func (s *service) articleBody(article *articles.Article) (string, error) {
	if strings.TrimSpace(article.ContentHTML) != "" || strings.TrimSpace(article.ContentMarkdown) == "" {
		return article.ContentHTML, nil
	}
	if s.deps.Markdown == nil {
		return article.ContentHTML, nil
	}
	out, err := s.deps.Markdown.Parse([]byte(article.ContentMarkdown))
	if err != nil {
		return "", fmt.Errorf("generator: convert markdown for %s: %w", article.Slug, err)
	}
	return string(out), nil
}

func (s *service) copyAssets(r *run) error {
	summary, err := copyAssets(r.ctx, r.writer, s.cfg.AssetsDir, s.cfg.Assets)
	for _, warning := range summary.Warnings {
		r.logger.Warn("generator.asset.skipped", "detail", warning)
	}
	r.result.Warnings = append(r.result.Warnings, summary.Warnings...)
	r.result.Assets = append(r.result.Assets, summary.Copied...)
	return err
}

func (s *service) publish(r *run) error {
	leftover, err := publishStaging(r.staging, s.cfg.OutputDir)
	if err != nil {
		return err
	}
	r.staging = ""
	if leftover != "" {
		warning := fmt.Sprintf("previous output left at %s", leftover)
		r.logger.Warn("generator.publish.leftover", "path", leftover)
		r.result.Warnings = append(r.result.Warnings, warning)
	}
	return nil
}
