package generator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-microsite/internal/articles"
	"github.com/goliatone/go-microsite/internal/generator"
	"github.com/goliatone/go-microsite/internal/markdown"
	"github.com/goliatone/go-microsite/internal/menus"
	"github.com/goliatone/go-microsite/internal/microtemplates"
	"github.com/goliatone/go-microsite/internal/rendering"
	"github.com/goliatone/go-microsite/internal/tags"
	"github.com/goliatone/go-microsite/pkg/testsupport"
)

const pageTemplate = `<html><head><title>{{ title }}</title></head><body>` +
	`<nav>{% for item in menu_items %}<h2>{{ item.name }}</h2>{% for link in item.articles %}<a href="{{ link.url }}">{{ link.title }}</a>{% endfor %}{% endfor %}</nav>` +
	`<main data-slug="{{ slug }}">{{ content }}</main></body></html>`

type harness struct {
	root     string
	out      string
	articles articles.Service
	tags     tags.Service
	deps     generator.Dependencies
	cfg      generator.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"templates/article.html":  pageTemplate,
		"microtemplates/box.html": "<strong>{{ text }}</strong>",
		"assets/style.css":        "body { margin: 0; }",
	})

	h := &harness{
		root:     root,
		out:      filepath.Join(root, "site"),
		articles: articles.NewService(articles.NewMemoryArticleRepository()),
		tags:     tags.NewService(tags.NewMemoryTagRepository()),
	}

	microRenderer, err := rendering.New(filepath.Join(root, "microtemplates"))
	if err != nil {
		t.Fatalf("microtemplate renderer: %v", err)
	}
	pageRenderer, err := rendering.New(filepath.Join(root, "templates"))
	if err != nil {
		t.Fatalf("page renderer: %v", err)
	}
	registry := microtemplates.NewRegistry(map[string]microtemplates.Entry{
		"box":    {Template: "box.html"},
		"broken": {},
	})

	h.deps = generator.Dependencies{
		Articles: h.articles,
		Menus:    menus.NewProvider(h.tags, h.articles),
		Expander: microtemplates.NewExpander(registry, microRenderer),
		Pages:    generator.NewPageRenderer(pageRenderer, "article.html", generator.Site{Title: "Test"}, nil),
		Markdown: markdown.NewGoldmarkParser(markdown.Options{}),
	}
	h.cfg = generator.Config{
		OutputDir: h.out,
		AssetsDir: filepath.Join(root, "assets"),
		MenuSlugs: []string{"menu1"},
	}
	return h
}

func (h *harness) publish(t *testing.T, slugValue, title, body string, tagSlugs ...string) {
	t.Helper()
	_, err := h.articles.Create(context.Background(), articles.CreateArticleRequest{
		Title:       title,
		Slug:        slugValue,
		ContentHTML: body,
		Status:      articles.StatusPublished,
		Tags:        tagSlugs,
	})
	if err != nil {
		t.Fatalf("create %s: %v", slugValue, err)
	}
}

func (h *harness) generate(t *testing.T) *generator.Result {
	t.Helper()
	result, err := generator.NewService(h.cfg, h.deps).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return result
}

func readPage(t *testing.T, out, slugValue string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(out, slugValue, "index.html"))
	if err != nil {
		t.Fatalf("read page %s: %v", slugValue, err)
	}
	return string(data)
}

func TestGenerateRendersArticleWithMicrotemplatesAndMenu(t *testing.T) {
	h := newHarness(t)
	if _, err := h.tags.Create(context.Background(), tags.CreateTagRequest{Slug: "menu1", Name: "Guides", IsSystem: true}); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	h.publish(t, "hello-world", "Hello World",
		`<p>Hi <span data-jinja-tag="box" data-jinja-params='{"text":"x"}'></span></p>`, "menu1")

	result := h.generate(t)

	if result.State != generator.StateDone {
		t.Fatalf("expected done state, got %s", result.State)
	}
	if len(result.Pages) != 1 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	page := readPage(t, h.out, "hello-world")
	if !strings.Contains(page, `<main data-slug="hello-world"><p>Hi <strong>x</strong></p></main>`) {
		t.Fatalf("expected expanded content, got %q", page)
	}
	if strings.Contains(page, "data-jinja-tag") {
		t.Fatalf("marker leaked into output: %q", page)
	}
	if !strings.Contains(page, `<h2>Guides</h2><a href="/hello-world/">Hello World</a>`) {
		t.Fatalf("expected menu section, got %q", page)
	}
	if got := result.Pages[0]; got.Path != filepath.Join(h.out, "hello-world", "index.html") || len(got.Hash) != 64 || got.Placeholders != 1 {
		t.Fatalf("unexpected page result %+v", got)
	}
	if diff := cmp.Diff([]string{"style.css"}, result.Assets); diff != "" {
		t.Fatalf("assets mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(h.root, ".site.staging")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("staging directory should be gone after publish, stat err=%v", err)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "b-post", "B", `<p>b <span data-jinja-tag="missing"></span></p>`)
	h.publish(t, "a-post", "A", `<p>a <span data-jinja-tag="box" data-jinja-params='{"text":"1"}'></span></p>`)

	first := h.generate(t)
	firstTree := testsupport.ReadTree(t, h.out)
	second := h.generate(t)
	secondTree := testsupport.ReadTree(t, h.out)

	if diff := cmp.Diff(firstTree, secondTree); diff != "" {
		t.Fatalf("output changed between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Pages, second.Pages); diff != "" {
		t.Fatalf("page results changed between runs (-first +second):\n%s", diff)
	}
	if first.Pages[0].Slug != "a-post" || first.Pages[1].Slug != "b-post" {
		t.Fatalf("expected slug order, got %+v", first.Pages)
	}
	if !strings.Contains(firstTree["b-post/index.html"], "<!-- Unknown microtemplate: missing -->") {
		t.Fatalf("expected unknown diagnostic, got %q", firstTree["b-post/index.html"])
	}
}

func TestGenerateOnlyRendersPublishedArticlesAndClearsStalePages(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "live", "Live", "<p>live</p>")
	if _, err := h.articles.Create(context.Background(), articles.CreateArticleRequest{
		Title: "Draft", Slug: "draft", ContentHTML: "<p>draft</p>", Status: articles.StatusDraft,
	}); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	testsupport.WriteTree(t, h.out, map[string]string{"stale/index.html": "old"})

	h.generate(t)

	tree := testsupport.ReadTree(t, h.out)
	want := []string{"live/index.html", "style.css"}
	got := make([]string, 0, len(tree))
	for name := range tree {
		got = append(got, name)
	}
	slices.Sort(got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output files mismatch (-want +got):\n%s", diff)
	}
}

type failingPages struct {
	next  generator.PageRenderer
	fail  string
	panic string
}

func (f failingPages) Render(ctx context.Context, article *articles.Article, expanded string, menu menus.Context) (string, error) {
	switch article.Slug {
	case f.fail:
		return "", errors.New("template exploded")
	case f.panic:
		panic("boom")
	}
	return f.next.Render(ctx, article, expanded, menu)
}

func TestGenerateRecordsPerArticleFailuresAndContinues(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "fine", "Fine", "<p>fine</p>")
	h.publish(t, "fails", "Fails", "<p>x</p>")
	h.publish(t, "panics", "Panics", "<p>y</p>")
	h.publish(t, "misconfigured", "Mis", `<p><span data-jinja-tag="broken"></span></p>`)
	h.deps.Pages = failingPages{next: h.deps.Pages, fail: "fails", panic: "panics"}

	result := h.generate(t)

	if result.State != generator.StateDone {
		t.Fatalf("expected completed run, got %s", result.State)
	}
	failed := map[string]string{}
	for _, f := range result.Failures {
		failed[f.Slug] = f.Err.Error()
	}
	if len(failed) != 2 || !strings.Contains(failed["fails"], "template exploded") || !strings.Contains(failed["panics"], "boom") {
		t.Fatalf("unexpected failures %+v", result.Failures)
	}
	if len(result.Pages) != 2 {
		t.Fatalf("expected two pages, got %+v", result.Pages)
	}
	if page := readPage(t, h.out, "misconfigured"); !strings.Contains(page, "<!-- Misconfigured microtemplate: broken (no template file) -->") {
		t.Fatalf("expected misconfigured comment, got %q", page)
	}
	if _, err := os.Stat(filepath.Join(h.out, "fails")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("failed article should not produce output, stat err=%v", err)
	}
}

type staticArticles struct {
	records []*articles.Article
	err     error
}

func (s staticArticles) ListPublished(context.Context) ([]*articles.Article, error) {
	return s.records, s.err
}

type failingMenus struct{}

func (failingMenus) Fetch(context.Context, []string, int) (menus.Context, error) {
	return menus.Context{}, errors.New("tag store down")
}

func TestGenerateFatalErrorsKeepPreviousOutput(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*generator.Dependencies)
	}{
		{"article store", func(d *generator.Dependencies) {
			d.Articles = staticArticles{err: errors.New("connection refused")}
		}},
		{"menu data", func(d *generator.Dependencies) {
			d.Menus = failingMenus{}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			testsupport.WriteTree(t, h.out, map[string]string{"old/index.html": "previous"})
			tc.mutate(&h.deps)

			result, err := generator.NewService(h.cfg, h.deps).Generate(context.Background())
			if err == nil {
				t.Fatalf("expected fatal error")
			}
			if !goerrors.IsCategory(err, goerrors.CategoryInternal) {
				t.Fatalf("expected internal category, got %v", err)
			}
			if result.State != generator.StateFailed {
				t.Fatalf("expected failed state, got %s", result.State)
			}
			if diff := cmp.Diff(map[string]string{"old/index.html": "previous"}, testsupport.ReadTree(t, h.out)); diff != "" {
				t.Fatalf("previous output changed (-want +got):\n%s", diff)
			}
			if _, err := os.Stat(filepath.Join(h.root, ".site.staging")); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("staging should be discarded, stat err=%v", err)
			}
		})
	}
}

func TestGenerateRejectsUnsafeSlugs(t *testing.T) {
	h := newHarness(t)
	h.deps.Articles = staticArticles{records: []*articles.Article{
		{Title: "Escape", Slug: "../escape", Status: articles.StatusPublished},
		{Title: "Empty", Slug: "", Status: articles.StatusPublished},
		{Title: "Ok", Slug: "ok", Status: articles.StatusPublished, ContentHTML: "<p>ok</p>"},
	}}

	result := h.generate(t)

	if len(result.Failures) != 2 {
		t.Fatalf("expected two failures, got %+v", result.Failures)
	}
	for _, f := range result.Failures {
		if !errors.Is(f.Err, generator.ErrInvalidSlug) {
			t.Fatalf("expected ErrInvalidSlug, got %v", f.Err)
		}
	}
	if _, err := os.Stat(filepath.Join(h.root, "escape")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("nothing may be written outside the output root")
	}
}

func TestGenerateConvertsMarkdownWhenHTMLIsEmpty(t *testing.T) {
	h := newHarness(t)
	h.deps.Articles = staticArticles{records: []*articles.Article{{
		Title:           "Notes",
		Slug:            "notes",
		Status:          articles.StatusPublished,
		ContentMarkdown: "Some **bold** text <span data-jinja-tag=\"box\" data-jinja-params='{\"text\":\"md\"}'></span>",
	}}}

	h.generate(t)

	page := readPage(t, h.out, "notes")
	if !strings.Contains(page, "<strong>bold</strong>") || !strings.Contains(page, "<strong>md</strong>") {
		t.Fatalf("expected markdown and microtemplate output, got %q", page)
	}
}

func TestGenerateWarnsOnMissingAssets(t *testing.T) {
	h := newHarness(t)
	h.cfg.Assets = []string{"style.css", "missing.js", "../outside.css"}

	result := h.generate(t)

	if diff := cmp.Diff([]string{"style.css"}, result.Assets); diff != "" {
		t.Fatalf("assets mismatch (-want +got):\n%s", diff)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("expected two warnings, got %+v", result.Warnings)
	}
}

func TestGenerateFallsBackToBuiltInPageTemplate(t *testing.T) {
	h := newHarness(t)
	pages := generator.NewPageRenderer(nil, "", generator.Site{Title: "Site", BaseURL: "https://example.com/"}, nil)
	if !pages.UsesFallback() {
		t.Fatalf("expected fallback layout")
	}
	h.deps.Pages = pages
	h.deps.Articles = staticArticles{records: []*articles.Article{{Slug: "untitled", Status: articles.StatusPublished, ContentHTML: "<p>body</p>"}}}

	h.generate(t)

	page := readPage(t, h.out, "untitled")
	for _, want := range []string{"<title>Untitled Article | Site</title>", `<article data-slug="untitled">`, "<p>body</p>", `href="https://example.com/style.css"`} {
		if !strings.Contains(page, want) {
			t.Fatalf("expected %q in page %q", want, page)
		}
	}
}

func TestGenerateStopsWhenContextIsCancelled(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "one", "One", "<p>1</p>")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := generator.NewService(h.cfg, h.deps).Generate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if result.State != generator.StateFailed {
		t.Fatalf("expected failed state, got %s", result.State)
	}
	if _, err := os.Stat(h.out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("cancelled run must not publish output")
	}
}

type countingExpanderSource struct {
	loads    int
	registry *microtemplates.Registry
	renderer microtemplates.TemplateRenderer
}

func (c *countingExpanderSource) Load(context.Context) *microtemplates.Expander {
	c.loads++
	return microtemplates.NewExpander(c.registry, c.renderer)
}

func TestGenerateLoadsExpanderOncePerRun(t *testing.T) {
	h := newHarness(t)
	h.publish(t, "one", "One", `<p><span data-jinja-tag="box" data-jinja-params='{"text":"1"}'></span></p>`)
	h.publish(t, "two", "Two", `<p><span data-jinja-tag="box" data-jinja-params='{"text":"2"}'></span></p>`)

	renderer, err := rendering.New(filepath.Join(h.root, "microtemplates"))
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	source := &countingExpanderSource{renderer: renderer, registry: microtemplates.EmptyRegistry()}
	h.deps.Expanders = source

	if page := readPageAfter(t, h, "one"); !strings.Contains(page, "Unknown microtemplate: box") {
		t.Fatalf("expected empty registry from the source to win over Expander, got %q", page)
	}

	source.registry = microtemplates.NewRegistry(map[string]microtemplates.Entry{"box": {Template: "box.html"}})
	if page := readPageAfter(t, h, "two"); !strings.Contains(page, "<strong>2</strong>") {
		t.Fatalf("expected reloaded registry on second run, got %q", page)
	}
	if source.loads != 2 {
		t.Fatalf("expected one load per run, got %d", source.loads)
	}
}

func readPageAfter(t *testing.T, h *harness, slugValue string) string {
	t.Helper()
	h.generate(t)
	return readPage(t, h.out, slugValue)
}
