package generator

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"github.com/goliatone/go-microsite/internal/articles"
	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/internal/menus"
	"github.com/goliatone/go-microsite/internal/rendering"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

//go:embed templates/page.html
var defaultPageTemplate string

const (
	// DefaultPageTemplate is the page template looked up in the templates
	// directory.
	DefaultPageTemplate = "article.html"

	untitledArticle = "Untitled Article"
	missingSlug     = "no-slug"
)

// Site carries site-wide values exposed to page templates.
type Site struct {
	Title   string
	BaseURL string
}

// PageRenderer renders the full HTML page for one article.
type PageRenderer interface {
	Render(ctx context.Context, article *articles.Article, expanded string, menu menus.Context) (string, error)
}

type templateExists interface {
	Exists(name string) bool
}

// TemplatePageRenderer renders pages through a template renderer. When the
// page template is not found it falls back to a built-in layout.
type TemplatePageRenderer struct {
	renderer interfaces.TemplateRenderer
	template string
	fallback interfaces.TemplateRenderer
	site     Site
}

// NewPageRenderer builds a renderer for template. renderer may be nil, in
// which case the built-in layout is always used.
func NewPageRenderer(renderer interfaces.TemplateRenderer, template string, site Site, logger interfaces.Logger) *TemplatePageRenderer {
	if logger == nil {
		logger = logging.NoOp()
	}
	template = strings.TrimSpace(template)
	if template == "" {
		template = DefaultPageTemplate
	}
	site.BaseURL = strings.TrimRight(strings.TrimSpace(site.BaseURL), "/")

	p := &TemplatePageRenderer{
		renderer: renderer,
		template: template,
		fallback: rendering.NewInline(),
		site:     site,
	}
	if !p.hasTemplate() {
		logger.Warn("generator.page_template.fallback", "template", template)
		p.renderer = nil
	}
	return p
}

func (p *TemplatePageRenderer) hasTemplate() bool {
	if p.renderer == nil {
		return false
	}
	if checker, ok := p.renderer.(templateExists); ok {
		return checker.Exists(p.template)
	}
	return true
}

// UsesFallback reports whether the built-in layout is in use.
func (p *TemplatePageRenderer) UsesFallback() bool {
	return p.renderer == nil
}

// Render renders the page. expanded is inserted without escaping.
func (p *TemplatePageRenderer) Render(ctx context.Context, article *articles.Article, expanded string, menu menus.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data := p.pageContext(article, expanded, menu)
	if p.renderer == nil {
		return p.fallback.RenderString(defaultPageTemplate, data)
	}
	return p.renderer.RenderTemplate(p.template, data)
}

func (p *TemplatePageRenderer) pageContext(article *articles.Article, expanded string, menu menus.Context) map[string]any {
	title, slug := untitledArticle, missingSlug
	view := map[string]any{}
	if article != nil {
		if t := strings.TrimSpace(article.Title); t != "" {
			title = article.Title
		}
		if s := strings.TrimSpace(article.Slug); s != "" {
			slug = article.Slug
		}
		view = articleView(article)
	}
	return map[string]any{
		"title":      title,
		"content":    rendering.Safe(expanded),
		"slug":       slug,
		"article":    view,
		"menu_items": menu.Template(),
		"site": map[string]any{
			"title":    p.site.Title,
			"base_url": p.site.BaseURL,
		},
	}
}

// articleView exposes every stored article field to page templates.
// content_html is the raw, unexpanded body; pages print the expanded body
// through content.
func articleView(a *articles.Article) map[string]any {
	view := map[string]any{
		"id":               a.ID.String(),
		"title":            a.Title,
		"slug":             a.Slug,
		"summary":          a.Summary,
		"content_html":     a.ContentHTML,
		"content_markdown": a.ContentMarkdown,
		"cover_image":      a.CoverImage,
		"status":           string(a.Status),
		"tags":             append([]string{}, a.Tags...),
		"versions":         versionViews(a.Versions),
		"created_at":       a.CreatedAt,
		"updated_at":       a.UpdatedAt,
		"url":              menus.ArticleURL(a.Slug),
	}
	if a.PublishedAt != nil {
		view["published_at"] = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func versionViews(versions []articles.Version) []map[string]any {
	out := make([]map[string]any, 0, len(versions))
	for _, v := range versions {
		out = append(out, map[string]any{
			"number":           v.Number,
			"title":            v.Title,
			"slug":             v.Slug,
			"summary":          v.Summary,
			"content_html":     v.ContentHTML,
			"content_markdown": v.ContentMarkdown,
			"cover_image":      v.CoverImage,
			"status":           string(v.Status),
			"tags":             append([]string{}, v.Tags...),
			"saved_at":         v.SavedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
