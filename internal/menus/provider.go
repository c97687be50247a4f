package menus

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/goliatone/go-microsite/internal/articles"
	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/internal/tags"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

// DefaultLimit is the number of articles listed under each section.
const DefaultLimit = 5

// DefaultSlugs returns the system tag slugs used when none are configured.
func DefaultSlugs() []string {
	return []string{"menu1", "menu2", "menu3"}
}

var errTagsRequired = errors.New("menus: tag lookup is required")

// TagFinder resolves system tags by slug.
type TagFinder interface {
	FindSystemBySlugs(ctx context.Context, slugs []string) ([]*tags.Tag, error)
}

// ArticleLister lists the newest published articles carrying a tag.
type ArticleLister interface {
	ListPublishedByTag(ctx context.Context, tag string, limit int) ([]*articles.Article, error)
}

// Link is the trimmed article view exposed to page templates.
type Link struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
	URL   string `json:"url"`
}

// Item is one menu section: a system tag and its newest published articles.
type Item struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Articles []Link `json:"articles"`
}

// Context holds the menu sections for a single generation run. It is built
// once and never changed afterwards; Items hands out copies.
type Context struct {
	items []Item
}

// NewContext snapshots items into a Context.
func NewContext(items []Item) Context {
	return Context{items: cloneItems(items)}
}

// Items returns a copy of the sections in configured order.
func (c Context) Items() []Item {
	return cloneItems(c.items)
}

// Len returns the number of sections.
func (c Context) Len() int {
	return len(c.items)
}

// Template returns the sections as plain maps for template contexts.
func (c Context) Template() []map[string]any {
	out := make([]map[string]any, 0, len(c.items))
	for _, item := range c.items {
		links := make([]map[string]any, 0, len(item.Articles))
		for _, link := range item.Articles {
			links = append(links, map[string]any{
				"title": link.Title,
				"slug":  link.Slug,
				"url":   link.URL,
			})
		}
		out = append(out, map[string]any{
			"name":     item.Name,
			"slug":     item.Slug,
			"articles": links,
		})
	}
	return out
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLinkBuilder overrides how article URLs are derived from slugs.
func WithLinkBuilder(fn func(slug string) string) Option {
	return func(p *Provider) {
		if fn != nil {
			p.link = fn
		}
	}
}

// Provider assembles menu sections from system tags.
type Provider struct {
	tags     TagFinder
	articles ArticleLister
	logger   interfaces.Logger
	link     func(string) string
}

// NewProvider wires a Provider over the tag and article stores.
func NewProvider(tagFinder TagFinder, lister ArticleLister, opts ...Option) *Provider {
	p := &Provider{
		tags:     tagFinder,
		articles: lister,
		logger:   logging.NoOp(),
		link:     ArticleURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ArticleURL is the site-relative URL of an article page.
func ArticleURL(slug string) string {
	return "/" + strings.Trim(slug, "/") + "/"
}

// Fetch builds the menu context for slugs, keeping their order. A nil slug
// list means DefaultSlugs and a non-positive limit means DefaultLimit.
//
// The tag lookup failing is fatal. Missing or non-system tags are skipped with
// a warning, and so is a section whose article query fails.
func (p *Provider) Fetch(ctx context.Context, slugs []string, limit int) (Context, error) {
	if p == nil || p.tags == nil || p.articles == nil {
		return Context{}, errTagsRequired
	}
	if slugs == nil {
		slugs = DefaultSlugs()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	slugs = compact(slugs)
	if len(slugs) == 0 {
		return Context{}, nil
	}

	found, err := p.tags.FindSystemBySlugs(ctx, slugs)
	if err != nil {
		return Context{}, err
	}
	bySlug := make(map[string]*tags.Tag, len(found))
	for _, tag := range found {
		if tag != nil && tag.IsSystem {
			bySlug[tag.Slug] = tag
		}
	}

	items := make([]Item, 0, len(slugs))
	for _, slugValue := range slugs {
		logger := logging.WithFields(p.logger, map[string]any{"tag": slugValue})
		tag, ok := bySlug[slugValue]
		if !ok {
			logger.Warn("menus.tag.missing")
			continue
		}

		records, err := p.articles.ListPublishedByTag(ctx, slugValue, limit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Context{}, ctxErr
			}
			logger.Error("menus.articles.failed", "error", err)
			continue
		}

		item := Item{Name: tag.Name, Slug: tag.Slug, Articles: make([]Link, 0, len(records))}
		if strings.TrimSpace(item.Name) == "" {
			item.Name = tag.Slug
		}
		for _, record := range records {
			if record == nil {
				continue
			}
			item.Articles = append(item.Articles, Link{
				Title: record.Title,
				Slug:  record.Slug,
				URL:   p.link(record.Slug),
			})
		}
		items = append(items, item)
	}

	p.logger.Debug("menus.fetched", "sections", len(items))
	return Context{items: items}, nil
}

func compact(slugs []string) []string {
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Articles = slices.Clone(item.Articles)
	}
	return out
}
