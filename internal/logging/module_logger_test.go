package logging

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-microsite/pkg/interfaces"
)

type recordingLogger struct {
	fields []map[string]any
}

func (r *recordingLogger) Trace(string, ...any) {}
func (r *recordingLogger) Debug(string, ...any) {}
func (r *recordingLogger) Info(string, ...any)  {}
func (r *recordingLogger) Warn(string, ...any)  {}
func (r *recordingLogger) Error(string, ...any) {}
func (r *recordingLogger) Fatal(string, ...any) {}

func (r *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	r.fields = append(r.fields, fields)
	return r
}

func (r *recordingLogger) WithContext(context.Context) interfaces.Logger { return r }

type stubProvider struct {
	requested []string
	logger    interfaces.Logger
}

func (s *stubProvider) GetLogger(name string) interfaces.Logger {
	s.requested = append(s.requested, name)
	return s.logger
}

func TestModuleLoggerFallsBackToNoOp(t *testing.T) {
	logger := ModuleLogger(nil, GeneratorModule)
	if _, ok := logger.(noopLogger); !ok {
		t.Fatalf("expected noopLogger fallback, got %T", logger)
	}
	logger.WithContext(context.Background()).Info("noop")
}

func TestModuleLoggerUsesProviderAndAnnotatesModule(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	ModuleLogger(provider, MenusModule)

	if diff := cmp.Diff([]string{MenusModule}, provider.requested); diff != "" {
		t.Fatalf("requested modules mismatch (-want +got):\n%s", diff)
	}
	want := []map[string]any{{"module": MenusModule}}
	if diff := cmp.Diff(want, rec.fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestModuleLoggerDefaultsToRootModule(t *testing.T) {
	provider := &stubProvider{logger: &recordingLogger{}}
	ModuleLogger(provider, "  ")
	if len(provider.requested) != 1 || provider.requested[0] != RootModule {
		t.Fatalf("expected root module, got %v", provider.requested)
	}
}

func TestWithArticleSkipsEmptyValues(t *testing.T) {
	rec := &recordingLogger{}
	WithArticle(rec, "hello-world", "")
	if diff := cmp.Diff([]map[string]any{{"slug": "hello-world"}}, rec.fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	rec = &recordingLogger{}
	WithArticle(rec, " ", "")
	if len(rec.fields) != 0 {
		t.Fatalf("expected no fields applied, got %v", rec.fields)
	}
}

func TestContextWithFieldsMerges(t *testing.T) {
	ctx := ContextWithFields(context.Background(), map[string]any{"run": "a", "stage": "init"})
	ctx = ContextWithFields(ctx, map[string]any{"stage": "render"})

	want := map[string]any{"run": "a", "stage": "render"}
	if diff := cmp.Diff(want, ContextFields(ctx)); diff != "" {
		t.Fatalf("context fields mismatch (-want +got):\n%s", diff)
	}

	fields := ContextFields(ctx)
	fields["run"] = "mutated"
	if ContextFields(ctx)["run"] != "a" {
		t.Fatal("expected ContextFields to return a copy")
	}
}
