package rendering

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-microsite/pkg/interfaces"
)

var ErrTemplateNameRequired = errors.New("rendering: template name required")

// Renderer renders pongo2 (Jinja syntax) templates from a directory.
type Renderer struct {
	root  string
	set   *pongo2.TemplateSet
	cache bool
}

var _ interfaces.TemplateRenderer = (*Renderer)(nil)

// Option configures a Renderer.
type Option func(*Renderer)

// WithCache toggles compiled template caching. It is on by default.
func WithCache(enabled bool) Option {
	return func(r *Renderer) {
		r.cache = enabled
	}
}

// New returns a renderer that loads templates relative to root.
func New(root string, opts ...Option) (*Renderer, error) {
	loader, err := pongo2.NewLocalFileSystemLoader(root)
	if err != nil {
		return nil, fmt.Errorf("rendering: template root %q: %w", root, err)
	}
	r := &Renderer{
		root:  root,
		set:   pongo2.NewSet("microsite:"+root, loader),
		cache: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewInline returns a renderer without a template directory. Only
// RenderString is useful on it.
func NewInline(opts ...Option) *Renderer {
	loader, _ := pongo2.NewLocalFileSystemLoader("")
	r := &Renderer{set: pongo2.NewSet("microsite:inline", loader), cache: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the template directory.
func (r *Renderer) Root() string {
	return r.root
}

// Exists reports whether name resolves to a regular file under the root.
func (r *Renderer) Exists(name string) bool {
	if r.root == "" || strings.TrimSpace(name) == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(r.root, filepath.FromSlash(name)))
	return err == nil && info.Mode().IsRegular()
}

// Render is an alias of RenderTemplate.
func (r *Renderer) Render(name string, data any, out ...io.Writer) (string, error) {
	return r.RenderTemplate(name, data, out...)
}

// RenderTemplate renders the template file name with data.
func (r *Renderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrTemplateNameRequired
	}
	if r.root == "" {
		return "", fmt.Errorf("rendering: no template directory to load %s from", name)
	}
	var (
		tpl *pongo2.Template
		err error
	)
	if r.cache {
		tpl, err = r.set.FromCache(name)
	} else {
		tpl, err = r.set.FromFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("rendering: load %s: %w", name, err)
	}
	return execute(tpl, name, data, out)
}

// RenderString compiles and renders an inline template.
func (r *Renderer) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	tpl, err := r.set.FromString(templateContent)
	if err != nil {
		return "", fmt.Errorf("rendering: compile inline template: %w", err)
	}
	return execute(tpl, "inline", data, out)
}

// RegisterFilter installs fn as a pongo2 filter, replacing any filter with
// the same name. pongo2 filters are process wide.
func (r *Renderer) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		result, err := fn(in.Interface(), param.Interface())
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}
	if pongo2.FilterExists(name) {
		return pongo2.ReplaceFilter(name, filter)
	}
	return pongo2.RegisterFilter(name, filter)
}

func execute(tpl *pongo2.Template, name string, data any, out []io.Writer) (string, error) {
	rendered, err := tpl.Execute(toContext(data))
	if err != nil {
		return "", fmt.Errorf("rendering: execute %s: %w", name, err)
	}
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := io.WriteString(w, rendered); err != nil {
			return rendered, fmt.Errorf("rendering: write %s: %w", name, err)
		}
	}
	return rendered, nil
}

func toContext(data any) pongo2.Context {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}
	case pongo2.Context:
		return v
	case map[string]any:
		return pongo2.Context(v)
	default:
		return pongo2.Context{"data": v}
	}
}

// Safe marks html as already escaped so templates print it verbatim.
func Safe(html string) any {
	return pongo2.AsSafeValue(html)
}
