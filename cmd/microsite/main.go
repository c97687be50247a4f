package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-microsite/internal/articles"
	sitecmd "github.com/goliatone/go-microsite/internal/commands/site"
	"github.com/goliatone/go-microsite/internal/di"
	"github.com/goliatone/go-microsite/internal/generator"
	"github.com/goliatone/go-microsite/internal/importer"
	"github.com/goliatone/go-microsite/internal/microtemplates"
	"github.com/goliatone/go-microsite/internal/runtimeconfig"
	"github.com/goliatone/go-microsite/internal/tags"
)

// CLI is the root command line definition.
type CLI struct {
	Config   string `short:"c" help:"Configuration file path" env:"MICROSITE_CONFIG" type:"path"`
	LogLevel string `name:"log-level" help:"Override the configured log level"`

	Generate         GenerateCmd         `cmd:"" help:"Render published articles into the output directory"`
	SyncTags         SyncTagsCmd         `cmd:"" name:"sync-tags" help:"Sync system tags from the configured definition file"`
	Import           ImportCmd           `cmd:"" help:"Import a directory of Markdown articles"`
	ValidateRegistry ValidateRegistryCmd `cmd:"" name:"validate-registry" help:"Check the microtemplate registry file"`
}

type handlerSet struct {
	generate command.Commander[sitecmd.GenerateSiteCommand]
	syncTags command.Commander[sitecmd.SyncSystemTagsCommand]
	importer command.Commander[sitecmd.ImportArticlesCommand]
	registry command.Commander[sitecmd.ValidateRegistryCommand]
}

type moduleResources struct {
	config   runtimeconfig.Config
	handlers handlerSet
	close    func() error
}

// appContext is bound into every sub-command Run method.
type appContext struct {
	ctx       context.Context
	out       io.Writer
	resources *moduleResources
}

var moduleBuilder = buildModule

func buildModule(ctx context.Context, cfg runtimeconfig.Config) (*moduleResources, error) {
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &moduleResources{
		config: cfg,
		handlers: handlerSet{
			generate: container.GenerateHandler(),
			syncTags: container.SyncSystemTagsHandler(),
			importer: container.ImportHandler(),
			registry: container.ValidateRegistryHandler(),
		},
		close: func() error {
			if err := container.WriteMetricsTextfile(); err != nil {
				log.Printf("write metrics textfile: %v", err)
			}
			return container.Close()
		},
	}, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Printf("microsite: %v", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("microsite"),
		kong.Description("Static site generator with microtemplate expansion."),
		kong.Writers(out, os.Stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := runtimeconfig.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if level := strings.TrimSpace(cli.LogLevel); level != "" {
		cfg.Logging.Level = level
	}

	resources, err := moduleBuilder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		if resources.close != nil {
			if err := resources.close(); err != nil {
				log.Printf("close: %v", err)
			}
		}
	}()

	return kctx.Run(&appContext{ctx: ctx, out: out, resources: resources})
}

// GenerateCmd implements the 'generate' command.
type GenerateCmd struct{}

// Run executes a generator pass. Per-article failures are reported but do
// not change the exit status.
func (g *GenerateCmd) Run(app *appContext) error {
	var result *generator.Result
	err := app.resources.handlers.generate.Execute(app.ctx, sitecmd.GenerateSiteCommand{
		ResultCallback: func(r *generator.Result) { result = r },
	})
	if result != nil {
		fmt.Fprintf(app.out, "state=%s pages=%d failures=%d warnings=%d duration=%s\n",
			result.State, len(result.Pages), len(result.Failures), len(result.Warnings), result.Duration)
		for _, failure := range result.Failures {
			fmt.Fprintf(app.out, "failed %s: %v\n", failure.Slug, failure.Err)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(app.out, "warning: %s\n", warning)
		}
	}
	return err
}

// SyncTagsCmd implements the 'sync-tags' command.
type SyncTagsCmd struct {
	File string `short:"f" help:"System tag definition file (defaults to system_tags_path)" type:"path"`
}

func (s *SyncTagsCmd) Run(app *appContext) error {
	path := s.File
	if strings.TrimSpace(path) == "" {
		path = app.resources.config.SystemTagsPath
	}
	return app.resources.handlers.syncTags.Execute(app.ctx, sitecmd.SyncSystemTagsCommand{
		Path: path,
		ResultCallback: func(r *tags.SyncReport) {
			fmt.Fprintf(app.out, "added=%d marked=%d unmarked=%d failed=%d\n",
				len(r.Added), len(r.Marked), len(r.Unmarked), len(r.Failed))
		},
	})
}

// ImportCmd implements the 'import' command.
type ImportCmd struct {
	Dir       string `arg:"" help:"Directory containing Markdown files" type:"path"`
	Status    string `help:"Status for documents without one" default:"draft" enum:"draft,published,archived"`
	Recursive bool   `short:"r" help:"Walk sub-directories"`
}

func (i *ImportCmd) Run(app *appContext) error {
	return app.resources.handlers.importer.Execute(app.ctx, sitecmd.ImportArticlesCommand{
		Dir:           i.Dir,
		DefaultStatus: articles.Status(i.Status),
		Recursive:     i.Recursive,
		ResultCallback: func(r *importer.Report) {
			fmt.Fprintf(app.out, "created=%d updated=%d skipped=%d errors=%d\n",
				len(r.Created), len(r.Updated), len(r.Skipped), len(r.Errors))
			for _, fe := range r.Errors {
				fmt.Fprintf(app.out, "error %s\n", fe.Error())
			}
		},
	})
}

// ValidateRegistryCmd implements the 'validate-registry' command.
type ValidateRegistryCmd struct {
	File string `short:"f" help:"Registry file (defaults to generator.registry_path)" type:"path"`
}

func (v *ValidateRegistryCmd) Run(app *appContext) error {
	path := v.File
	if strings.TrimSpace(path) == "" {
		path = app.resources.config.Generator.RegistryPath
	}
	return app.resources.handlers.registry.Execute(app.ctx, sitecmd.ValidateRegistryCommand{
		Path: path,
		ResultCallback: func(r *microtemplates.Registry) {
			fmt.Fprintf(app.out, "registry ok: %d entries (%s)\n", r.Len(), strings.Join(r.Keys(), ", "))
		},
	})
}
