package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-microsite/internal/articles"
	sitecmd "github.com/goliatone/go-microsite/internal/commands/site"
	"github.com/goliatone/go-microsite/internal/generator"
	"github.com/goliatone/go-microsite/internal/importer"
	"github.com/goliatone/go-microsite/internal/runtimeconfig"
	"github.com/goliatone/go-microsite/internal/tags"
)

type stubGenerateHandler struct {
	calls  int
	result *generator.Result
	err    error
}

func (s *stubGenerateHandler) Execute(ctx context.Context, msg sitecmd.GenerateSiteCommand) error {
	s.calls++
	if msg.ResultCallback != nil && s.result != nil {
		msg.ResultCallback(s.result)
	}
	return s.err
}

type stubSyncHandler struct {
	last sitecmd.SyncSystemTagsCommand
}

func (s *stubSyncHandler) Execute(ctx context.Context, msg sitecmd.SyncSystemTagsCommand) error {
	s.last = msg
	if msg.ResultCallback != nil {
		msg.ResultCallback(&tags.SyncReport{Added: []string{"menu1"}, Marked: []string{"menu2"}})
	}
	return nil
}

type stubImportHandler struct {
	last sitecmd.ImportArticlesCommand
}

func (s *stubImportHandler) Execute(ctx context.Context, msg sitecmd.ImportArticlesCommand) error {
	s.last = msg
	if msg.ResultCallback != nil {
		msg.ResultCallback(&importer.Report{Created: []string{"a", "b"}, Skipped: []string{"c"}})
	}
	return nil
}

type stubRegistryHandler struct {
	last sitecmd.ValidateRegistryCommand
	err  error
}

func (s *stubRegistryHandler) Execute(ctx context.Context, msg sitecmd.ValidateRegistryCommand) error {
	s.last = msg
	return s.err
}

type stubHandlers struct {
	generate *stubGenerateHandler
	sync     *stubSyncHandler
	importer *stubImportHandler
	registry *stubRegistryHandler
	config   runtimeconfig.Config
	closed   bool
}

func withStubModule(t *testing.T) *stubHandlers {
	t.Helper()
	original := moduleBuilder
	stubs := &stubHandlers{
		generate: &stubGenerateHandler{},
		sync:     &stubSyncHandler{},
		importer: &stubImportHandler{},
		registry: &stubRegistryHandler{},
	}
	moduleBuilder = func(_ context.Context, cfg runtimeconfig.Config) (*moduleResources, error) {
		stubs.config = cfg
		return &moduleResources{
			config: cfg,
			handlers: handlerSet{
				generate: stubs.generate,
				syncTags: stubs.sync,
				importer: stubs.importer,
				registry: stubs.registry,
			},
			close: func() error {
				stubs.closed = true
				return nil
			},
		}, nil
	}
	t.Cleanup(func() { moduleBuilder = original })
	return stubs
}

func TestRunGeneratePrintsSummary(t *testing.T) {
	stubs := withStubModule(t)
	stubs.generate.result = &generator.Result{
		State:    generator.StateDone,
		Pages:    []generator.PageResult{{Slug: "hello"}},
		Failures: []generator.ArticleFailure{{Slug: "broken", Err: errors.New("boom")}},
		Warnings: []string{"asset style.css not found"},
	}

	var out bytes.Buffer
	if err := run(context.Background(), []string{"generate"}, &out); err != nil {
		t.Fatalf("run generate: %v", err)
	}
	if stubs.generate.calls != 1 {
		t.Fatalf("expected one generate call, got %d", stubs.generate.calls)
	}
	if !stubs.closed {
		t.Fatal("expected module resources to be closed")
	}
	for _, want := range []string{
		"state=done pages=1 failures=1 warnings=1",
		"failed broken: boom",
		"warning: asset style.css not found",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output %q", want, out.String())
		}
	}
}

func TestRunGenerateReturnsFatalError(t *testing.T) {
	stubs := withStubModule(t)
	stubs.generate.err = errors.New("output not writable")

	if err := run(context.Background(), []string{"generate"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected fatal generator error")
	}
	if !stubs.closed {
		t.Fatal("expected resources to be closed after failure")
	}
}

func TestRunLogLevelOverridesConfig(t *testing.T) {
	stubs := withStubModule(t)

	if err := run(context.Background(), []string{"--log-level", "debug", "generate"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stubs.config.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", stubs.config.Logging.Level)
	}
}

func TestRunSyncTagsDefaultsToConfiguredPath(t *testing.T) {
	stubs := withStubModule(t)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "microsite.yaml")
	if err := os.WriteFile(cfgPath, []byte("system_tags_path: custom_tags.json\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), []string{"-c", cfgPath, "sync-tags"}, &out); err != nil {
		t.Fatalf("run sync-tags: %v", err)
	}
	if stubs.sync.last.Path != "custom_tags.json" {
		t.Fatalf("expected configured path, got %q", stubs.sync.last.Path)
	}
	if !strings.Contains(out.String(), "added=1 marked=1 unmarked=0 failed=0") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunImportPassesFlags(t *testing.T) {
	stubs := withStubModule(t)
	dir := t.TempDir()

	var out bytes.Buffer
	if err := run(context.Background(), []string{"import", dir, "--status", "published", "-r"}, &out); err != nil {
		t.Fatalf("run import: %v", err)
	}
	got := stubs.importer.last
	if got.Dir != dir || got.DefaultStatus != articles.StatusPublished || !got.Recursive {
		t.Fatalf("unexpected import command %+v", got)
	}
	if !strings.Contains(out.String(), "created=2 updated=0 skipped=1 errors=0") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunImportRejectsUnknownStatus(t *testing.T) {
	withStubModule(t)
	if err := run(context.Background(), []string{"import", t.TempDir(), "--status", "pending"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected enum validation error")
	}
}

func TestRunValidateRegistryUsesFlagPath(t *testing.T) {
	stubs := withStubModule(t)
	path := filepath.Join(t.TempDir(), "registry.jsonc")

	if err := run(context.Background(), []string{"validate-registry", "--file", path}, &bytes.Buffer{}); err != nil {
		t.Fatalf("run validate-registry: %v", err)
	}
	if stubs.registry.last.Path != path {
		t.Fatalf("expected %s, got %s", path, stubs.registry.last.Path)
	}
}

func TestRunValidateRegistryPropagatesError(t *testing.T) {
	stubs := withStubModule(t)
	stubs.registry.err = errors.New("duplicate key")

	err := run(context.Background(), []string{"validate-registry"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "duplicate key") {
		t.Fatalf("expected registry error, got %v", err)
	}
}
