package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-microsite/internal/articles"
	"github.com/goliatone/go-microsite/internal/commands"
	sitecmd "github.com/goliatone/go-microsite/internal/commands/site"
	"github.com/goliatone/go-microsite/internal/generator"
	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/internal/logging/console"
	"github.com/goliatone/go-microsite/internal/logging/gologger"
	"github.com/goliatone/go-microsite/internal/markdown"
	"github.com/goliatone/go-microsite/internal/menus"
	"github.com/goliatone/go-microsite/internal/metrics"
	"github.com/goliatone/go-microsite/internal/microtemplates"
	"github.com/goliatone/go-microsite/internal/rendering"
	"github.com/goliatone/go-microsite/internal/runtimeconfig"
	"github.com/goliatone/go-microsite/internal/storage"
	"github.com/goliatone/go-microsite/internal/tags"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

// Container wires module dependencies from a runtime configuration.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	logger         interfaces.Logger

	bunDB         *bun.DB
	ownsDB        bool
	memoryStorage bool
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	articleRepo articles.ArticleRepository
	tagRepo     tags.TagRepository
	articleSvc  articles.Service
	tagSvc      tags.Service

	metrics    metrics.Recorder
	prometheus *metrics.PrometheusRecorder

	markdown     *markdown.GoldmarkParser
	expanders    *microtemplates.Source
	pageRenderer *generator.TemplatePageRenderer
	menuProvider *menus.Provider
	generatorSvc generator.Service

	generateHandler *sitecmd.GenerateSiteHandler
	syncTagsHandler *sitecmd.SyncSystemTagsHandler
	importHandler   *sitecmd.ImportArticlesHandler
	registryHandler *sitecmd.ValidateRegistryHandler
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithBunDB uses db instead of opening one from the storage config. The
// caller keeps ownership of db.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithMemoryStorage keeps articles and tags in process memory.
func WithMemoryStorage() Option {
	return func(c *Container) {
		c.memoryStorage = true
	}
}

// WithLoggerProvider overrides the provider selected by the logging config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithCache overrides the repository cache.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithArticleService overrides the default article service binding.
func WithArticleService(svc articles.Service) Option {
	return func(c *Container) {
		c.articleSvc = svc
	}
}

// WithTagService overrides the default tag service binding.
func WithTagService(svc tags.Service) Option {
	return func(c *Container) {
		c.tagSvc = svc
	}
}

// WithMetrics overrides the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *Container) {
		c.metrics = rec
	}
}

// NewContainer validates cfg and builds every service. A database is opened
// unless one is injected or memory storage is requested.
func NewContainer(ctx context.Context, cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Container{Config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	if err := c.configureRepositories(ctx); err != nil {
		return nil, err
	}
	c.configureServices()
	c.configureMetrics()
	c.configureGenerator()
	c.configureHandlers()
	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider == nil {
		logCfg := c.Config.Logging
		switch strings.ToLower(strings.TrimSpace(logCfg.Provider)) {
		case "gologger":
			provider, err := gologger.NewProvider(gologger.Config{
				Level:     logCfg.Level,
				Format:    logCfg.Format,
				AddSource: logCfg.AddSource,
				Focus:     logCfg.Focus,
			})
			if err != nil {
				return fmt.Errorf("di: logging: %w", err)
			}
			c.loggerProvider = provider
		default:
			level, _ := console.ParseLevel(logCfg.Level)
			c.loggerProvider = console.NewProvider(console.Options{Writer: os.Stderr, MinLevel: level})
		}
	}
	c.logger = logging.ModuleLogger(c.loggerProvider, logging.RootModule)
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}
	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.Config.Cache.TTL > 0 {
			cfg.TTL = c.Config.Cache.TTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err != nil {
			c.logger.Warn("di.cache.disabled", "error", err)
			return
		}
		c.cacheService = service
	}
	if c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureRepositories(ctx context.Context) error {
	if c.articleSvc != nil && c.tagSvc != nil {
		return nil
	}
	if c.memoryStorage {
		c.articleRepo = articles.NewMemoryArticleRepository()
		c.tagRepo = tags.NewMemoryTagRepository()
		return nil
	}

	if c.bunDB == nil {
		db, err := storage.Open(ctx, c.Config.Storage.Driver, c.Config.Storage.DSN, storage.Options{
			Debug:   c.Config.Storage.Debug,
			Tracing: c.Config.Storage.Tracing,
			DBName:  "microsite",
		})
		if err != nil {
			return err
		}
		c.bunDB = db
		c.ownsDB = true
	}
	if err := storage.EnsureSchema(ctx, c.bunDB); err != nil {
		return errors.Join(err, c.Close())
	}
	c.articleRepo = articles.NewBunArticleRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	c.tagRepo = tags.NewBunTagRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	return nil
}

func (c *Container) configureServices() {
	if c.articleSvc == nil {
		c.articleSvc = articles.NewService(c.articleRepo,
			articles.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.ArticlesModule)),
			articles.WithVersionLimit(c.Config.Articles.VersionLimit),
		)
	}
	if c.tagSvc == nil {
		c.tagSvc = tags.NewService(c.tagRepo,
			tags.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.TagsModule)),
		)
	}
}

func (c *Container) configureMetrics() {
	if c.metrics != nil {
		return
	}
	if !c.Config.Metrics.Enabled {
		c.metrics = metrics.NoopRecorder{}
		return
	}
	c.prometheus = metrics.NewPrometheusRecorder(nil)
	c.metrics = c.prometheus
}

func (c *Container) configureGenerator() {
	genCfg := c.Config.Generator
	templatesLogger := logging.MicrotemplatesLogger(c.loggerProvider)
	generatorLogger := logging.GeneratorLogger(c.loggerProvider)

	c.markdown = markdown.NewGoldmarkParser(markdown.Options{
		Extensions: c.Config.Markdown.Extensions,
		HardWraps:  c.Config.Markdown.HardWraps,
	})
	// Registry and fragment templates are read again on every run.
	c.expanders = microtemplates.NewSource(genCfg.RegistryPath,
		func() (microtemplates.TemplateRenderer, error) {
			renderer, err := rendering.New(genCfg.MicrotemplatesDir)
			if err != nil {
				return nil, err
			}
			return renderer, nil
		},
		templatesLogger,
		microtemplates.WithMetrics(c.metrics),
	)

	var pages interfaces.TemplateRenderer
	// Uncached so scheduled runs pick up edited page templates.
	if renderer, err := rendering.New(genCfg.TemplatesDir, rendering.WithCache(false)); err != nil {
		generatorLogger.Warn("generator.templates.unavailable", "dir", genCfg.TemplatesDir, "error", err)
	} else {
		pages = renderer
	}
	c.pageRenderer = generator.NewPageRenderer(pages, genCfg.PageTemplate, generator.Site{
		Title:   c.Config.Site.Title,
		BaseURL: c.Config.Site.BaseURL,
	}, generatorLogger)

	c.menuProvider = menus.NewProvider(c.tagSvc, c.articleSvc,
		menus.WithLogger(logging.ModuleLogger(c.loggerProvider, logging.MenusModule)),
	)

	c.generatorSvc = generator.NewService(generator.Config{
		OutputDir: genCfg.OutputDir,
		AssetsDir: genCfg.AssetsDir,
		Assets:    genCfg.Assets,
		MenuSlugs: genCfg.MenuSlugs,
		MenuLimit: genCfg.MenuLimit,
	}, generator.Dependencies{
		Articles:  c.articleSvc,
		Menus:     c.menuProvider,
		Expanders: c.expanders,
		Pages:     c.pageRenderer,
		Markdown:  c.markdown,
		Metrics:   c.metrics,
		Logger:    generatorLogger,
	})
}

func (c *Container) configureHandlers() {
	c.generateHandler = sitecmd.NewGenerateSiteHandler(c.generatorSvc, c.commandLogger("site")).
		WithCronExpression(c.Config.Generator.Schedule)
	c.syncTagsHandler = sitecmd.NewSyncSystemTagsHandler(c.tagSvc, c.commandLogger("tags"))
	c.importHandler = sitecmd.NewImportArticlesHandler(c.articleSvc, c.markdown, c.commandLogger("articles"))
	c.registryHandler = sitecmd.NewValidateRegistryHandler(c.commandLogger("microtemplates"))
}

func (c *Container) commandLogger(module string) interfaces.Logger {
	return commands.CommandLogger(c.loggerProvider, module)
}

// Close releases the database when the container opened it.
func (c *Container) Close() error {
	if c.bunDB == nil || !c.ownsDB {
		return nil
	}
	err := c.bunDB.Close()
	c.bunDB = nil
	return err
}

// LoggerProvider exposes the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// Logger returns the root module logger.
func (c *Container) Logger() interfaces.Logger {
	return c.logger
}

// DB returns the bun database, or nil with memory storage.
func (c *Container) DB() *bun.DB {
	return c.bunDB
}

// ArticleService returns the configured article service.
func (c *Container) ArticleService() articles.Service {
	return c.articleSvc
}

// TagService returns the configured tag service.
func (c *Container) TagService() tags.Service {
	return c.tagSvc
}

// Registry loads the microtemplate registry as it currently is on disk.
func (c *Container) Registry() *microtemplates.Registry {
	return c.expanders.Registry()
}

// GeneratorService returns the static site generator.
func (c *Container) GeneratorService() generator.Service {
	return c.generatorSvc
}

// Metrics returns the active recorder.
func (c *Container) Metrics() metrics.Recorder {
	return c.metrics
}

// WriteMetricsTextfile exports Prometheus metrics to the configured textfile.
// It is a no-op unless metrics are enabled with a textfile path.
func (c *Container) WriteMetricsTextfile() error {
	if c.prometheus == nil {
		return nil
	}
	return c.prometheus.WriteTextfile(c.Config.Metrics.Textfile)
}

// GenerateHandler returns the generate command handler.
func (c *Container) GenerateHandler() *sitecmd.GenerateSiteHandler {
	return c.generateHandler
}

// SyncSystemTagsHandler returns the system tag sync handler.
func (c *Container) SyncSystemTagsHandler() *sitecmd.SyncSystemTagsHandler {
	return c.syncTagsHandler
}

// ImportHandler returns the Markdown import handler.
func (c *Container) ImportHandler() *sitecmd.ImportArticlesHandler {
	return c.importHandler
}

// ValidateRegistryHandler returns the registry check handler.
func (c *Container) ValidateRegistryHandler() *sitecmd.ValidateRegistryHandler {
	return c.registryHandler
}
