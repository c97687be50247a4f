// Package generator exposes the static site generator for hosts that wire
// their own article store, menu provider and templates.
package generator

import internal "github.com/goliatone/go-microsite/internal/generator"

type (
	Service        = internal.Service
	Config         = internal.Config
	Dependencies   = internal.Dependencies
	Result         = internal.Result
	PageResult     = internal.PageResult
	ArticleFailure = internal.ArticleFailure
	State          = internal.State
	Site           = internal.Site
	PageRenderer   = internal.PageRenderer
	ArticleSource  = internal.ArticleSource
	MenuFetcher    = internal.MenuFetcher
	Expander       = internal.Expander
	ExpanderSource = internal.ExpanderSource
)

const (
	StateDone     = internal.StateDone
	StateFailed   = internal.StateFailed
	FatalTextCode = internal.FatalTextCode
)

// NewService wires a static site generator with the supplied configuration and dependencies.
func NewService(cfg Config, deps Dependencies) Service {
	return internal.NewService(cfg, deps)
}
