// Package importer seeds the article store from a directory of Markdown files
// with YAML frontmatter.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-microsite/internal/articles"
	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/internal/markdown"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

var (
	ErrArticlesRequired = errors.New("importer: article store is required")
	ErrDirRequired      = errors.New("importer: directory is required")
	ErrSlugMissing      = errors.New("importer: slug could not be determined")
)

// ArticleStore is the subset of articles.Service used by the importer.
type ArticleStore interface {
	GetBySlug(ctx context.Context, slug string) (*articles.Article, error)
	Create(ctx context.Context, req articles.CreateArticleRequest) (*articles.Article, error)
	Update(ctx context.Context, req articles.UpdateArticleRequest) (*articles.Article, error)
}

// Config wires the importer.
type Config struct {
	Articles ArticleStore
	// Parser renders document bodies into ContentHTML. Defaults to goldmark
	// with unsafe HTML allowed so microtemplate markers survive.
	Parser interfaces.MarkdownParser
	Logger interfaces.Logger
	// DefaultStatus applies to documents without a status. Defaults to draft.
	DefaultStatus articles.Status
	Recursive     bool
}

// FileError records a document that could not be imported.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Report lists the slugs touched by an import.
type Report struct {
	Created []string
	Updated []string
	Skipped []string
	Errors  []FileError
}

// Err joins the per-file errors, or returns nil when every file imported.
func (r *Report) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, fe := range r.Errors {
		errs = append(errs, fe)
	}
	return errors.Join(errs...)
}

// Importer creates or updates articles from Markdown documents.
type Importer struct {
	articles      ArticleStore
	parser        interfaces.MarkdownParser
	logger        interfaces.Logger
	defaultStatus articles.Status
	recursive     bool
}

// NewImporter builds an Importer from cfg.
func NewImporter(cfg Config) *Importer {
	parser := cfg.Parser
	if parser == nil {
		parser = markdown.NewGoldmarkParser(markdown.Options{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	status := cfg.DefaultStatus
	if status == "" {
		status = articles.StatusDraft
	}
	return &Importer{
		articles:      cfg.Articles,
		parser:        parser,
		logger:        logger,
		defaultStatus: status,
		recursive:     cfg.Recursive,
	}
}

// ImportDir imports every *.md file in dir.
func (i *Importer) ImportDir(ctx context.Context, dir string) (*Report, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, ErrDirRequired
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("importer: %s is not a directory", dir)
	}
	return i.ImportFS(ctx, os.DirFS(dir), ".")
}

// ImportFS imports the documents found under root in fsys. Failing documents
// are recorded in the report; the returned error is reserved for listing
// failures and cancellation.
func (i *Importer) ImportFS(ctx context.Context, fsys fs.FS, root string) (*Report, error) {
	if i.articles == nil {
		return nil, ErrArticlesRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}
	loader := markdown.NewLoader(fsys, markdown.LoaderConfig{Recursive: i.recursive})
	paths, err := loader.Paths(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("importer: list documents: %w", err)
	}

	report := &Report{}
	for _, name := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		doc, err := loader.LoadFile(ctx, name)
		if err == nil {
			err = i.apply(ctx, doc, report)
		}
		if err != nil {
			i.logger.Warn("importer.document.failed", "path", name, "error", err)
			report.Errors = append(report.Errors, FileError{Path: name, Err: err})
		}
	}
	i.logger.Info("importer.completed",
		"created", len(report.Created),
		"updated", len(report.Updated),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors),
	)
	return report, nil
}

func (i *Importer) apply(ctx context.Context, doc *markdown.Document, report *Report) error {
	slugValue, err := documentSlug(doc)
	if err != nil {
		return err
	}
	rendered, err := i.parser.Parse(doc.Body)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	status, err := i.documentStatus(doc.FrontMatter)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(doc.FrontMatter.Title)
	if title == "" {
		title = fallbackTitle(slugValue)
	}
	input := articleInput{
		title:    title,
		summary:  strings.TrimSpace(doc.FrontMatter.Summary),
		cover:    strings.TrimSpace(doc.FrontMatter.CoverImage),
		html:     string(rendered),
		markdown: string(doc.Body),
		status:   status,
		tags:     doc.FrontMatter.Tags,
	}

	existing, err := i.articles.GetBySlug(ctx, slugValue)
	if err != nil {
		var notFound *articles.NotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("lookup %s: %w", slugValue, err)
		}
		created, err := i.articles.Create(ctx, articles.CreateArticleRequest{
			Title:           input.title,
			Slug:            slugValue,
			Summary:         input.summary,
			ContentHTML:     input.html,
			ContentMarkdown: input.markdown,
			CoverImage:      input.cover,
			Status:          input.status,
			Tags:            input.tags,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", slugValue, err)
		}
		report.Created = append(report.Created, created.Slug)
		return nil
	}

	if input.matches(existing) {
		report.Skipped = append(report.Skipped, existing.Slug)
		return nil
	}
	updated, err := i.articles.Update(ctx, articles.UpdateArticleRequest{
		ID:              existing.ID,
		Title:           &input.title,
		Summary:         &input.summary,
		ContentHTML:     &input.html,
		ContentMarkdown: &input.markdown,
		CoverImage:      &input.cover,
		Status:          &input.status,
		Tags:            nonNil(input.tags),
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", slugValue, err)
	}
	report.Updated = append(report.Updated, updated.Slug)
	return nil
}

func (i *Importer) documentStatus(fm markdown.FrontMatter) (articles.Status, error) {
	raw := strings.ToLower(strings.TrimSpace(fm.Status))
	switch {
	case raw != "":
		status := articles.Status(raw)
		if !status.Valid() {
			return "", fmt.Errorf("%w: %q", articles.ErrStatusInvalid, fm.Status)
		}
		return status, nil
	case fm.Draft:
		return articles.StatusDraft, nil
	default:
		return i.defaultStatus, nil
	}
}

type articleInput struct {
	title    string
	summary  string
	cover    string
	html     string
	markdown string
	status   articles.Status
	tags     []string
}

func (in articleInput) matches(a *articles.Article) bool {
	return a.Title == in.title &&
		a.Summary == in.summary &&
		a.CoverImage == in.cover &&
		a.ContentHTML == in.html &&
		a.ContentMarkdown == in.markdown &&
		a.Status == in.status &&
		slices.Equal(a.Tags, compactTags(in.tags))
}

// documentSlug prefers the frontmatter slug and falls back to the file name.
func documentSlug(doc *markdown.Document) (string, error) {
	if explicit := strings.TrimSpace(doc.FrontMatter.Slug); explicit != "" {
		return explicit, nil
	}
	base := strings.TrimSuffix(path.Base(doc.Path), path.Ext(doc.Path))
	derived, err := slug.Normalize(base)
	if err != nil || derived == "" {
		return "", fmt.Errorf("%w from %s", ErrSlugMissing, doc.Path)
	}
	return derived, nil
}

func fallbackTitle(slugValue string) string {
	words := strings.FieldsFunc(slugValue, func(r rune) bool { return r == '-' || r == '_' })
	for idx, word := range words {
		words[idx] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func compactTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
