package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// renderPassMessage mirrors the shape of the site messages: a directory to
// work on and a callback for the outcome.
type renderPassMessage struct {
	OutputDir string
	Done      func(pages int)
}

func (renderPassMessage) Type() string { return "microsite.test.render_pass" }

func (m renderPassMessage) Validate() error {
	return validation.Errors{
		"output_dir": validation.Validate(strings.TrimSpace(m.OutputDir), validation.Required),
	}.Filter()
}

func TestHandlerRunsValidRenderPass(t *testing.T) {
	pages := 0
	h := NewHandler[renderPassMessage](func(_ context.Context, msg renderPassMessage) error {
		msg.Done(3)
		return nil
	})

	err := h.Execute(context.Background(), renderPassMessage{OutputDir: "site", Done: func(n int) { pages = n }})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if pages != 3 {
		t.Fatalf("expected callback with 3 pages, got %d", pages)
	}
}

func TestHandlerErrorCodes(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	storeDown := errors.New("article store down")

	cases := []struct {
		name     string
		ctx      context.Context
		msg      renderPassMessage
		exec     func(context.Context, renderPassMessage) error
		opts     []HandlerOption[renderPassMessage]
		category goerrors.Category
		code     string
		ran      bool
	}{
		{
			name:     "blank output dir is rejected before running",
			ctx:      context.Background(),
			msg:      renderPassMessage{OutputDir: "  "},
			category: goerrors.CategoryValidation,
			code:     CodeMessageRejected,
		},
		{
			name:     "canceled before start",
			ctx:      canceled,
			msg:      renderPassMessage{OutputDir: "site"},
			category: goerrors.CategoryCommand,
			code:     CodeRunCanceled,
		},
		{
			name: "run past the timeout",
			ctx:  context.Background(),
			msg:  renderPassMessage{OutputDir: "site"},
			exec: func(ctx context.Context, _ renderPassMessage) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Second):
					return nil
				}
			},
			opts:     []HandlerOption[renderPassMessage]{WithTimeout[renderPassMessage](10 * time.Millisecond)},
			category: goerrors.CategoryCommand,
			code:     CodeRunTimedOut,
			ran:      true,
		},
		{
			name:     "store failure",
			ctx:      context.Background(),
			msg:      renderPassMessage{OutputDir: "site"},
			exec:     func(context.Context, renderPassMessage) error { return storeDown },
			category: goerrors.CategoryCommand,
			code:     CodeRunFailed,
			ran:      true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ran := false
			h := NewHandler[renderPassMessage](func(ctx context.Context, msg renderPassMessage) error {
				ran = true
				if tc.exec == nil {
					return nil
				}
				return tc.exec(ctx, msg)
			}, tc.opts...)

			err := h.Execute(tc.ctx, tc.msg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !goerrors.IsCategory(err, tc.category) {
				t.Fatalf("expected category %s, got %v", tc.category, err)
			}
			if got := TextCode(err); got != tc.code {
				t.Fatalf("expected code %s, got %q", tc.code, got)
			}
			if ran != tc.ran {
				t.Fatalf("expected ran=%v, got %v", tc.ran, ran)
			}
		})
	}

	if err := NewHandler[renderPassMessage](func(context.Context, renderPassMessage) error { return storeDown }).
		Execute(context.Background(), renderPassMessage{OutputDir: "site"}); !errors.Is(err, storeDown) {
		t.Fatalf("expected the store error to stay reachable, got %v", err)
	}
}

func TestWrapExecuteErrorKeepsGeneratorCategory(t *testing.T) {
	fatal := goerrors.Wrap(errors.New("staging dir not writable"), goerrors.CategoryInternal, "generator failed").
		WithTextCode("GENERATOR_CLEAR_OUTPUT")

	got := WrapExecuteError(fatal)
	if !goerrors.IsCategory(got, goerrors.CategoryInternal) {
		t.Fatalf("expected internal category to survive, got %v", got)
	}
	if code := TextCode(got); code != "GENERATOR_CLEAR_OUTPUT" {
		t.Fatalf("expected generator code to survive, got %q", code)
	}
	if TextCode(errors.New("plain")) != "" {
		t.Fatal("expected no code on a plain error")
	}
}

func TestHandlerTelemetryReportsImportOutcome(t *testing.T) {
	var got TelemetryInfo
	h := NewHandler[renderPassMessage](func(context.Context, renderPassMessage) error {
		return errors.New("content/broken.md: bad frontmatter")
	},
		WithOperation[renderPassMessage]("articles.import"),
		WithMessageFields(func(m renderPassMessage) map[string]any { return map[string]any{"dir": m.OutputDir} }),
		WithTelemetry(func(_ context.Context, _ renderPassMessage, info TelemetryInfo) { got = info }),
	)

	if err := h.Execute(context.Background(), renderPassMessage{OutputDir: "content"}); err == nil {
		t.Fatal("expected import failure")
	}
	if got.Status != TelemetryStatusFailed || TextCode(got.Error) != CodeRunFailed {
		t.Fatalf("unexpected outcome status=%q error=%v", got.Status, got.Error)
	}
	if got.Command != "microsite.test.render_pass" || got.Operation != "articles.import" {
		t.Fatalf("unexpected telemetry identity %+v", got)
	}
	if got.Fields["dir"] != "content" || got.Fields["command"] != "microsite.test.render_pass" {
		t.Fatalf("expected message fields, got %v", got.Fields)
	}
}
