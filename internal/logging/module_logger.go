package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-microsite/pkg/interfaces"
)

// Module names used when requesting loggers from a provider.
const (
	RootModule           = "microsite"
	GeneratorModule      = "microsite.generator"
	MicrotemplatesModule = "microsite.microtemplates"
	MenusModule          = "microsite.menus"
	ArticlesModule       = "microsite.articles"
	TagsModule           = "microsite.tags"
	ImporterModule       = "microsite.importer"
	CommandsModule       = "microsite.commands"
)

const (
	fieldArticleSlug = "slug"
	fieldStage       = "stage"
	fieldTemplateKey = "microtemplate"
)

// ModuleLogger returns the logger registered for module, falling back to a
// no-op logger when provider is nil or returns nothing. The module name is
// attached to every entry under the "module" field.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	module = strings.TrimSpace(module)
	if module == "" {
		module = RootModule
	}

	var logger interfaces.Logger = noopLogger{}
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

// GeneratorLogger returns the logger used by the site builder.
func GeneratorLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, GeneratorModule)
}

// MicrotemplatesLogger returns the logger used by the registry loader and expander.
func MicrotemplatesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, MicrotemplatesModule)
}

// WithArticle scopes logger to a single article and pipeline stage. Empty
// values are skipped.
func WithArticle(logger interfaces.Logger, slug, stage string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(slug); trimmed != "" {
		fields[fieldArticleSlug] = trimmed
	}
	if trimmed := strings.TrimSpace(stage); trimmed != "" {
		fields[fieldStage] = trimmed
	}
	return WithFields(logger, fields)
}

// WithTemplateKey scopes logger to one microtemplate key.
func WithTemplateKey(logger interfaces.Logger, key string) interfaces.Logger {
	if strings.TrimSpace(key) == "" {
		return logger
	}
	return WithFields(logger, map[string]any{fieldTemplateKey: key})
}

// NoOp returns a logger that discards everything.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var (
	_ interfaces.Logger       = noopLogger{}
	_ interfaces.FieldsLogger = noopLogger{}
)

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger { return n }

func (n noopLogger) WithContext(context.Context) interfaces.Logger { return n }
