package microsite

import "github.com/goliatone/go-microsite/internal/runtimeconfig"

var (
	ErrOutputDirRequired      = runtimeconfig.ErrOutputDirRequired
	ErrStorageDriverInvalid   = runtimeconfig.ErrStorageDriverInvalid
	ErrStorageDSNRequired     = runtimeconfig.ErrStorageDSNRequired
	ErrMenuLimitInvalid       = runtimeconfig.ErrMenuLimitInvalid
	ErrLoggingProviderUnknown = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid    = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid   = runtimeconfig.ErrLoggingFormatInvalid
	ErrCacheTTLInvalid        = runtimeconfig.ErrCacheTTLInvalid
	ErrVersionLimitInvalid    = runtimeconfig.ErrVersionLimitInvalid
)

type (
	Config          = runtimeconfig.Config
	SiteConfig      = runtimeconfig.SiteConfig
	StorageConfig   = runtimeconfig.StorageConfig
	GeneratorConfig = runtimeconfig.GeneratorConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
	MetricsConfig   = runtimeconfig.MetricsConfig
	CacheConfig     = runtimeconfig.CacheConfig
	ArticlesConfig  = runtimeconfig.ArticlesConfig
	MarkdownConfig  = runtimeconfig.MarkdownConfig
)

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads .env files, the YAML document at path (optional) and
// MICROSITE_ environment overrides, then validates the result.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}
