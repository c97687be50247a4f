// Package sitecmd exposes the microsite operations as go-command handlers.
package sitecmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-microsite/internal/commands"
	"github.com/goliatone/go-microsite/internal/generator"
	"github.com/goliatone/go-microsite/internal/importer"
	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/internal/microtemplates"
	"github.com/goliatone/go-microsite/internal/tags"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

var (
	ErrGeneratorRequired = errors.New("site command: generator service is required")
	ErrTagsRequired      = errors.New("site command: tag service is required")
	ErrArticlesRequired  = errors.New("site command: article store is required")
)

var (
	_ command.Commander[GenerateSiteCommand]     = (*GenerateSiteHandler)(nil)
	_ command.Commander[SyncSystemTagsCommand]   = (*SyncSystemTagsHandler)(nil)
	_ command.Commander[ImportArticlesCommand]   = (*ImportArticlesHandler)(nil)
	_ command.Commander[ValidateRegistryCommand] = (*ValidateRegistryHandler)(nil)
	_ command.CronCommand                        = (*GenerateSiteHandler)(nil)
)

// DefaultGenerateCron is the schedule used when the handler is registered
// with a cron runner.
const DefaultGenerateCron = "@hourly"

// GenerateSiteHandler runs the generator.
type GenerateSiteHandler struct {
	inner      *commands.Handler[GenerateSiteCommand]
	cronConfig command.HandlerConfig
}

// NewGenerateSiteHandler constructs a handler wired to service. The result is
// handed to the message callback even when the run fails.
func NewGenerateSiteHandler(service generator.Service, logger interfaces.Logger, opts ...commands.HandlerOption[GenerateSiteCommand]) *GenerateSiteHandler {
	baseLogger := ensureLogger(logger)

	exec := func(ctx context.Context, msg GenerateSiteCommand) error {
		if service == nil {
			return ErrGeneratorRequired
		}
		result, err := service.Generate(ctx)
		if msg.ResultCallback != nil && result != nil {
			msg.ResultCallback(result)
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[GenerateSiteCommand]{
		commands.WithLogger[GenerateSiteCommand](baseLogger),
		commands.WithOperation[GenerateSiteCommand]("site.generate"),
		// Generation is bounded by the caller context only.
		commands.WithTimeout[GenerateSiteCommand](0),
		commands.WithTelemetry(commands.DefaultTelemetry[GenerateSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &GenerateSiteHandler{
		inner:      commands.NewHandler(exec, handlerOpts...),
		cronConfig: command.HandlerConfig{Expression: DefaultGenerateCron},
	}
}

// WithCronExpression overrides the cron schedule. Blank values are ignored.
func (h *GenerateSiteHandler) WithCronExpression(expression string) *GenerateSiteHandler {
	if trimmed := strings.TrimSpace(expression); trimmed != "" {
		h.cronConfig.Expression = trimmed
	}
	return h
}

// Execute satisfies command.Commander[GenerateSiteCommand].
func (h *GenerateSiteHandler) Execute(ctx context.Context, msg GenerateSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CronHandler satisfies command.CronCommand.
func (h *GenerateSiteHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), GenerateSiteCommand{})
	}
}

// CronOptions satisfies command.CronCommand.
func (h *GenerateSiteHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CLIHandler exposes the handler to CLI integrations.
func (h *GenerateSiteHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for site generation.
func (h *GenerateSiteHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"site", "generate"},
		Group:       "site",
		Description: "Render published articles into the output directory",
	}
}

// SyncSystemTagsHandler reconciles stored system tags with a definition file.
type SyncSystemTagsHandler struct {
	inner *commands.Handler[SyncSystemTagsCommand]
}

// NewSyncSystemTagsHandler constructs a handler wired to service.
func NewSyncSystemTagsHandler(service tags.Service, logger interfaces.Logger, opts ...commands.HandlerOption[SyncSystemTagsCommand]) *SyncSystemTagsHandler {
	baseLogger := ensureLogger(logger)

	exec := func(ctx context.Context, msg SyncSystemTagsCommand) error {
		if service == nil {
			return ErrTagsRequired
		}
		defs, err := tags.LoadSystemTags(strings.TrimSpace(msg.Path))
		if err != nil {
			return err
		}
		report, err := service.SyncSystemTags(ctx, defs)
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(report)
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("site command: %d system tags failed to sync", len(report.Failed))
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[SyncSystemTagsCommand]{
		commands.WithLogger[SyncSystemTagsCommand](baseLogger),
		commands.WithOperation[SyncSystemTagsCommand]("tags.sync_system"),
		commands.WithMessageFields(func(msg SyncSystemTagsCommand) map[string]any {
			return map[string]any{"path": msg.Path}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[SyncSystemTagsCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &SyncSystemTagsHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[SyncSystemTagsCommand].
func (h *SyncSystemTagsHandler) Execute(ctx context.Context, msg SyncSystemTagsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ImportArticlesHandler imports Markdown documents into the article store.
type ImportArticlesHandler struct {
	inner *commands.Handler[ImportArticlesCommand]
}

// NewImportArticlesHandler constructs a handler that writes to store. parser
// may be nil.
func NewImportArticlesHandler(store importer.ArticleStore, parser interfaces.MarkdownParser, logger interfaces.Logger, opts ...commands.HandlerOption[ImportArticlesCommand]) *ImportArticlesHandler {
	baseLogger := ensureLogger(logger)

	exec := func(ctx context.Context, msg ImportArticlesCommand) error {
		if store == nil {
			return ErrArticlesRequired
		}
		imp := importer.NewImporter(importer.Config{
			Articles:      store,
			Parser:        parser,
			Logger:        baseLogger,
			DefaultStatus: msg.DefaultStatus,
			Recursive:     msg.Recursive,
		})
		report, err := imp.ImportDir(ctx, strings.TrimSpace(msg.Dir))
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(report)
		}
		return report.Err()
	}

	handlerOpts := []commands.HandlerOption[ImportArticlesCommand]{
		commands.WithLogger[ImportArticlesCommand](baseLogger),
		commands.WithOperation[ImportArticlesCommand]("articles.import"),
		commands.WithMessageFields(func(msg ImportArticlesCommand) map[string]any {
			fields := map[string]any{"dir": msg.Dir}
			if msg.DefaultStatus != "" {
				fields["default_status"] = string(msg.DefaultStatus)
			}
			if msg.Recursive {
				fields["recursive"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ImportArticlesCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ImportArticlesHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ImportArticlesCommand].
func (h *ImportArticlesHandler) Execute(ctx context.Context, msg ImportArticlesCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ValidateRegistryHandler checks a registry file.
type ValidateRegistryHandler struct {
	inner *commands.Handler[ValidateRegistryCommand]
}

// NewValidateRegistryHandler constructs the registry check handler.
func NewValidateRegistryHandler(logger interfaces.Logger, opts ...commands.HandlerOption[ValidateRegistryCommand]) *ValidateRegistryHandler {
	baseLogger := ensureLogger(logger)

	exec := func(_ context.Context, msg ValidateRegistryCommand) error {
		registry, err := microtemplates.LoadRegistryStrict(strings.TrimSpace(msg.Path))
		if err != nil {
			return err
		}
		baseLogger.Info("microtemplates.registry.valid", "path", msg.Path, "entries", registry.Len())
		if msg.ResultCallback != nil {
			msg.ResultCallback(registry)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[ValidateRegistryCommand]{
		commands.WithLogger[ValidateRegistryCommand](baseLogger),
		commands.WithOperation[ValidateRegistryCommand]("microtemplates.validate_registry"),
		commands.WithMessageFields(func(msg ValidateRegistryCommand) map[string]any {
			return map[string]any{"path": msg.Path}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ValidateRegistryCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ValidateRegistryHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ValidateRegistryCommand].
func (h *ValidateRegistryHandler) Execute(ctx context.Context, msg ValidateRegistryCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the handler to CLI integrations.
func (h *ValidateRegistryHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for registry validation.
func (h *ValidateRegistryHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"microtemplates", "validate"},
		Group:       "microtemplates",
		Description: "Check a microtemplate registry file",
	}
}

func ensureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}
