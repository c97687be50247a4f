package microtemplates

import (
	"context"

	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

// RendererFactory builds a template renderer rooted at the microtemplate
// directory.
type RendererFactory func() (TemplateRenderer, error)

// Source rebuilds the registry and the expander from disk. Each call to
// Load sees the registry file and template files as they are now.
type Source struct {
	registryPath string
	renderers    RendererFactory
	logger       interfaces.Logger
	opts         []Option
}

// NewSource returns a Source reading the registry at registryPath. renderers
// may be nil, in which case resolved markers render as errors.
func NewSource(registryPath string, renderers RendererFactory, logger interfaces.Logger, opts ...Option) *Source {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Source{
		registryPath: registryPath,
		renderers:    renderers,
		logger:       logger,
		opts:         opts,
	}
}

// Registry loads the registry file, degrading like LoadRegistry.
func (s *Source) Registry() *Registry {
	return LoadRegistry(s.registryPath, s.logger)
}

// Load returns an expander over a freshly loaded registry and renderer.
func (s *Source) Load(ctx context.Context) *Expander {
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}

	var renderer TemplateRenderer
	if s.renderers != nil {
		built, err := s.renderers()
		if err != nil {
			logger.Warn("microtemplates.renderer.unavailable", "error", err)
		} else {
			renderer = built
		}
	}

	opts := append([]Option{WithLogger(s.logger)}, s.opts...)
	return NewExpander(s.Registry(), renderer, opts...)
}
