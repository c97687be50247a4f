package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrOutputDirRequired      = errors.New("microsite config: generator output directory is required")
	ErrStorageDriverInvalid   = errors.New("microsite config: storage driver is invalid")
	ErrStorageDSNRequired     = errors.New("microsite config: storage dsn is required")
	ErrMenuLimitInvalid       = errors.New("microsite config: menu limit must be zero or positive")
	ErrLoggingProviderUnknown = errors.New("microsite config: logging provider is invalid")
	ErrLoggingLevelInvalid    = errors.New("microsite config: logging level is invalid")
	ErrLoggingFormatInvalid   = errors.New("microsite config: logging format is invalid")
	ErrCacheTTLInvalid        = errors.New("microsite config: cache ttl must be positive when cache is enabled")
	ErrVersionLimitInvalid    = errors.New("microsite config: version limit must be zero or positive")
)

// Config is the root configuration document.
type Config struct {
	Site           SiteConfig      `yaml:"site"`
	Storage        StorageConfig   `yaml:"storage"`
	Generator      GeneratorConfig `yaml:"generator"`
	Logging        LoggingConfig   `yaml:"logging"`
	Metrics        MetricsConfig   `yaml:"metrics"`
	Cache          CacheConfig     `yaml:"cache"`
	Articles       ArticlesConfig  `yaml:"articles"`
	Markdown       MarkdownConfig  `yaml:"markdown"`
	SystemTagsPath string          `yaml:"system_tags_path"`
}

// SiteConfig carries values exposed to page templates.
type SiteConfig struct {
	Title   string `yaml:"title"`
	BaseURL string `yaml:"base_url"`
}

// StorageConfig selects the database.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
	// Tracing adds OpenTelemetry query spans.
	Tracing bool `yaml:"tracing"`
}

// GeneratorConfig captures behaviour for the static site generator.
type GeneratorConfig struct {
	OutputDir         string   `yaml:"output_dir"`
	TemplatesDir      string   `yaml:"templates_dir"`
	PageTemplate      string   `yaml:"page_template"`
	MicrotemplatesDir string   `yaml:"microtemplates_dir"`
	RegistryPath      string   `yaml:"registry_path"`
	AssetsDir         string   `yaml:"assets_dir"`
	Assets            []string `yaml:"assets"`
	MenuSlugs         []string `yaml:"menu_slugs"`
	MenuLimit         int      `yaml:"menu_limit"`
	// Schedule is the cron expression used when generation is registered
	// with a cron runner.
	Schedule string `yaml:"schedule"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// MetricsConfig toggles Prometheus collection. Textfile, when set, receives
// the metrics in node-exporter textfile format after each run.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// CacheConfig captures repository cache toggles.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// ArticlesConfig tunes the article store.
type ArticlesConfig struct {
	// VersionLimit caps stored versions per article. Zero keeps all.
	VersionLimit int `yaml:"version_limit"`
}

// MarkdownConfig tunes goldmark for imports and the markdown fallback.
type MarkdownConfig struct {
	Extensions []string `yaml:"extensions"`
	HardWraps  bool     `yaml:"hard_wraps"`
}

// DefaultConfig returns the defaults applied before a file is read.
func DefaultConfig() Config {
	return Config{
		Site: SiteConfig{Title: "Microsite"},
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "file:microsite.db?cache=shared&_fk=1",
		},
		Generator: GeneratorConfig{
			OutputDir:         "static_output",
			TemplatesDir:      "templates",
			PageTemplate:      "article.html",
			MicrotemplatesDir: "microtemplates",
			RegistryPath:      "microtemplates/registry.jsonc",
			AssetsDir:         "static",
			Assets:            []string{"style.css"},
			MenuSlugs:         []string{"menu1", "menu2", "menu3"},
			MenuLimit:         5,
			Schedule:          "@hourly",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     time.Minute,
		},
		SystemTagsPath: "system_tags.json",
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Generator.OutputDir) == "" {
		return ErrOutputDirRequired
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pg":
	default:
		return fmt.Errorf("%w: %q", ErrStorageDriverInvalid, cfg.Storage.Driver)
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		return ErrStorageDSNRequired
	}
	if cfg.Generator.MenuLimit < 0 {
		return ErrMenuLimitInvalid
	}
	if cfg.Articles.VersionLimit < 0 {
		return ErrVersionLimitInvalid
	}
	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return ErrCacheTTLInvalid
	}

	provider := normalizeProvider(cfg.Logging.Provider)
	if provider != "" && !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
