package microtemplates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/goliatone/go-microsite/internal/logging"
	"github.com/goliatone/go-microsite/internal/metrics"
	"github.com/goliatone/go-microsite/pkg/interfaces"
)

const (
	// KeyAttr names the template key attribute of a placeholder marker.
	KeyAttr = "data-jinja-tag"
	// ParamsAttr names the JSON parameters attribute of a placeholder marker.
	ParamsAttr = "data-jinja-params"
)

var ErrNoRenderer = errors.New("microtemplates: no template renderer configured")

// TemplateRenderer renders a microtemplate file with its parameters.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}

// Outcome records what happened to one marker.
type Outcome struct {
	Key    string
	Kind   ResolutionKind
	Err    error
	Params error
}

// Report summarizes one Expand call.
type Report struct {
	Markers  int
	Outcomes []Outcome
}

// Failed counts markers that were replaced by a diagnostic comment.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind != Resolved || o.Err != nil {
			n++
		}
	}
	return n
}

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(e *Expander) {
		if rec != nil {
			e.metrics = rec
		}
	}
}

// Expander replaces placeholder markers in article HTML with rendered
// microtemplates.
type Expander struct {
	registry *Registry
	renderer TemplateRenderer
	logger   interfaces.Logger
	metrics  metrics.Recorder
}

// NewExpander builds an expander. A nil registry disables expansion.
func NewExpander(registry *Registry, renderer TemplateRenderer, opts ...Option) *Expander {
	e := &Expander{
		registry: registry,
		renderer: renderer,
		logger:   logging.NoOp(),
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry used for lookups.
func (e *Expander) Registry() *Registry {
	return e.registry
}

// Expand returns content with every marker replaced. It never fails: each
// faulty marker turns into an HTML comment and the rest of the document is
// still expanded.
func (e *Expander) Expand(ctx context.Context, content string) string {
	out, _ := e.ExpandWithReport(ctx, content)
	return out
}

// ExpandWithReport is Expand plus a per-marker report. Content without
// markers is returned byte for byte.
func (e *Expander) ExpandWithReport(ctx context.Context, content string) (string, Report) {
	var report Report
	if e == nil || e.registry == nil || !strings.Contains(content, KeyAttr) {
		return content, report
	}

	logger := e.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}

	nodes, err := parseFragment(content, nil)
	if err != nil {
		logger.Warn("microtemplates.expand.parse_failed", "error", err)
		return content, report
	}
	root := bodyNode()
	for _, n := range nodes {
		root.AppendChild(n)
	}

	markers := findMarkers(root, KeyAttr)
	if len(markers) == 0 {
		return content, report
	}
	report.Markers = len(markers)

	for _, marker := range markers {
		outcome, replacement := e.expandMarker(logger, marker)
		report.Outcomes = append(report.Outcomes, outcome)
		replaceNode(marker, replacement...)
	}

	out, err := renderChildren(root)
	if err != nil {
		logger.Error("microtemplates.expand.serialize_failed", "error", err)
		return content, report
	}
	return out, report
}

func (e *Expander) expandMarker(logger interfaces.Logger, marker *html.Node) (Outcome, []*html.Node) {
	key, _ := getAttr(marker, KeyAttr)
	outcome := Outcome{Key: key}
	logger = logging.WithTemplateKey(logger, key)

	rawParams, present := getAttr(marker, ParamsAttr)
	params, err := parseParams(rawParams, present)
	if err != nil {
		outcome.Params = err
		e.metrics.IncPlaceholder(key, metrics.OutcomeBadParams)
		logger.Warn("microtemplates.expand.bad_params", "params", rawParams, "error", err)
	}

	resolution := e.registry.Resolve(key)
	outcome.Kind = resolution.Kind
	switch resolution.Kind {
	case Unknown:
		e.metrics.IncPlaceholder(key, metrics.OutcomeUnknown)
		logger.Warn("microtemplates.expand.unknown")
		return outcome, []*html.Node{commentNode("Unknown microtemplate: " + key)}
	case Misconfigured:
		e.metrics.IncPlaceholder(key, metrics.OutcomeMisconfigured)
		logger.Warn("microtemplates.expand.misconfigured")
		return outcome, []*html.Node{commentNode("Misconfigured microtemplate: " + key + " (no template file)")}
	}

	data, dropped := templateContext(mergeParams(resolution.Entry.Defaults(), params))
	if len(dropped) > 0 {
		logger.Warn("microtemplates.expand.params_dropped", "keys", dropped)
	}

	start := time.Now()
	rendered, err := e.render(resolution.Entry, data)
	if err == nil {
		var nodes []*html.Node
		nodes, err = parseFragment(rendered, marker.Parent)
		if err == nil {
			e.metrics.IncPlaceholder(key, metrics.OutcomeSuccess)
			logger.Debug("microtemplates.expand.rendered", "template", resolution.Entry.Template, "duration", time.Since(start))
			if significant := significantNodes(nodes); len(significant) == 1 && significant[0].Type == html.ElementNode {
				return outcome, significant
			}
			return outcome, nodes
		}
	}

	outcome.Err = err
	e.metrics.IncPlaceholder(key, metrics.OutcomeFailed)
	logger.Error("microtemplates.expand.render_failed", "template", resolution.Entry.Template, "error", err)
	return outcome, []*html.Node{commentNode(fmt.Sprintf("Error rendering microtemplate %s: %v", key, err))}
}

func (e *Expander) render(entry Entry, params map[string]any) (out string, err error) {
	if e.renderer == nil {
		return "", ErrNoRenderer
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.renderer.RenderTemplate(entry.Template, params)
}
