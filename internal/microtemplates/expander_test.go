package microtemplates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-microsite/internal/rendering"
)

type funcRenderer map[string]func(params map[string]any) (string, error)

func (f funcRenderer) RenderTemplate(name string, data any, _ ...io.Writer) (string, error) {
	fn, ok := f[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}
	return fn(data.(map[string]any))
}

func staticRenderer(outputs map[string]string) funcRenderer {
	r := funcRenderer{}
	for name, out := range outputs {
		r[name] = func(map[string]any) (string, error) { return out, nil }
	}
	return r
}

func TestExpandReturnsInputWithoutMarkers(t *testing.T) {
	inputs := []string{
		"",
		"<p>plain</p>",
		"<p>Unclosed <b>bold",
		"<p>mentions data-jinja-tag in text only</p>",
		"<div class=\"x\">&amp; <br/></div>",
	}
	e := NewExpander(EmptyRegistry(), nil)
	for _, in := range inputs {
		if got := e.Expand(context.Background(), in); got != in {
			t.Fatalf("expected %q unchanged, got %q", in, got)
		}
	}
}

func TestExpandWithNilRegistryLeavesMarkers(t *testing.T) {
	in := `<p><span data-jinja-tag="box"></span></p>`
	if got := NewExpander(nil, nil).Expand(context.Background(), in); got != in {
		t.Fatalf("expected disabled expander to return input, got %q", got)
	}
}

func TestExpandUnknownKeyBecomesComment(t *testing.T) {
	in := `<p>A<span data-jinja-tag="missing"></span>B</p>`

	got, report := NewExpander(EmptyRegistry(), nil).ExpandWithReport(context.Background(), in)

	want := `<p>A<!-- Unknown microtemplate: missing -->B</p>`
	if got != want {
		t.Fatalf("unexpected output\nwant: %s\ngot:  %s", want, got)
	}
	if report.Markers != 1 || report.Failed() != 1 || report.Outcomes[0].Kind != Unknown {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestExpandKeepsDocumentOrder(t *testing.T) {
	registry := NewRegistry(map[string]Entry{
		"t1": {Template: "t1.html"},
		"t2": {Template: "t2.html"},
	})
	renderer := staticRenderer(map[string]string{
		"t1.html": "<em>first</em>",
		"t2.html": "<em>second</em>",
	})
	in := `<div><span data-jinja-tag="t1"></span><p>middle</p><span data-jinja-tag="t2"></span></div>`

	got := NewExpander(registry, renderer).Expand(context.Background(), in)

	want := `<div><em>first</em><p>middle</p><em>second</em></div>`
	if got != want {
		t.Fatalf("unexpected output\nwant: %s\ngot:  %s", want, got)
	}
}

func TestExpandBadParamsFallsBackToEmpty(t *testing.T) {
	var received []map[string]any
	registry := NewRegistry(map[string]Entry{"box": {Template: "box.html"}})
	renderer := funcRenderer{"box.html": func(p map[string]any) (string, error) {
		received = append(received, p)
		return "<b>ok</b>", nil
	}}
	in := `<p><span data-jinja-tag="box" data-jinja-params="{not json"></span>` +
		`<span data-jinja-tag="box" data-jinja-params="[1,2]"></span></p>`

	got, report := NewExpander(registry, renderer).ExpandWithReport(context.Background(), in)

	if got != "<p><b>ok</b><b>ok</b></p>" {
		t.Fatalf("unexpected output %q", got)
	}
	empty := map[string]any{ParamsVar: map[string]any{}}
	if diff := cmp.Diff([]map[string]any{empty, empty}, received); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
	for _, o := range report.Outcomes {
		if o.Params == nil || o.Kind != Resolved || o.Err != nil {
			t.Fatalf("expected resolved outcome with params error, got %+v", o)
		}
	}
}

func TestExpandMergesAttributeDefaults(t *testing.T) {
	var received map[string]any
	registry := NewRegistry(map[string]Entry{"menu": {
		Template: "menu.html",
		Attributes: map[string]Attribute{
			"type":  {Type: "string", Default: "primary"},
			"limit": {Type: "number", Default: float64(3)},
			"title": {Type: "string"},
		},
	}})
	renderer := funcRenderer{"menu.html": func(p map[string]any) (string, error) {
		received = p
		return "<nav></nav>", nil
	}}
	in := `<span data-jinja-tag="menu" data-jinja-params='{"type":"secondary"}'></span>`

	NewExpander(registry, renderer).Expand(context.Background(), in)

	want := map[string]any{
		"type":    "secondary",
		"limit":   float64(3),
		ParamsVar: map[string]any{"type": "secondary", "limit": float64(3)},
	}
	if diff := cmp.Diff(want, received); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandMisconfiguredAndFailingTemplates(t *testing.T) {
	registry := NewRegistry(map[string]Entry{
		"empty": {DisplayName: "No file"},
		"boom":  {Template: "boom.html"},
		"panic": {Template: "panic.html"},
		"ok":    {Template: "ok.html"},
	})
	renderer := funcRenderer{
		"boom.html":  func(map[string]any) (string, error) { return "", errors.New("undefined -- variable") },
		"panic.html": func(map[string]any) (string, error) { panic("kaboom") },
		"ok.html":    func(map[string]any) (string, error) { return "<i>fine</i>", nil },
	}
	in := `<p><span data-jinja-tag="empty"></span>|<span data-jinja-tag="boom"></span>|` +
		`<span data-jinja-tag="panic"></span>|<span data-jinja-tag="ok"></span></p>`

	got, report := NewExpander(registry, renderer).ExpandWithReport(context.Background(), in)

	want := `<p><!-- Misconfigured microtemplate: empty (no template file) -->|` +
		`<!-- Error rendering microtemplate boom: undefined - - variable -->|` +
		`<!-- Error rendering microtemplate panic: panic: kaboom -->|<i>fine</i></p>`
	if got != want {
		t.Fatalf("unexpected output\nwant: %s\ngot:  %s", want, got)
	}
	if report.Failed() != 3 {
		t.Fatalf("expected 3 failed markers, got %d", report.Failed())
	}
}

func TestExpandSplicesSingleElementOrAllNodes(t *testing.T) {
	registry := NewRegistry(map[string]Entry{
		"single": {Template: "single.html"},
		"multi":  {Template: "multi.html"},
		"text":   {Template: "text.html"},
	})
	renderer := staticRenderer(map[string]string{
		"single.html": "\n  <section class=\"card\">One</section>\n",
		"multi.html":  "<b>a</b> and <i>b</i>",
		"text.html":   "just text",
	})

	cases := map[string]string{
		`<div><span data-jinja-tag="single"></span></div>`: `<div><section class="card">One</section></div>`,
		`<div><span data-jinja-tag="multi"></span></div>`:  `<div><b>a</b> and <i>b</i></div>`,
		`<div><span data-jinja-tag="text"></span></div>`:   `<div>just text</div>`,
	}
	e := NewExpander(registry, renderer)
	for in, want := range cases {
		if got := e.Expand(context.Background(), in); got != want {
			t.Fatalf("Expand(%s)\nwant: %s\ngot:  %s", in, want, got)
		}
	}
}

func TestExpandTopLevelAndNestedMarkers(t *testing.T) {
	registry := NewRegistry(map[string]Entry{"x": {Template: "x.html"}})
	renderer := staticRenderer(map[string]string{"x.html": "<hr>"})

	in := `<span data-jinja-tag="x"><span data-jinja-tag="inner"></span></span><p>after</p>`
	got, report := NewExpander(registry, renderer).ExpandWithReport(context.Background(), in)

	if got != `<hr/><p>after</p>` {
		t.Fatalf("unexpected output %q", got)
	}
	if report.Markers != 1 {
		t.Fatalf("nested marker should not be visited, got %d markers", report.Markers)
	}
}

func TestExpandWithPongoTemplates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "box.html"), []byte("<strong>{{text}}</strong>"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	renderer, err := rendering.New(dir)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	registry := NewRegistry(map[string]Entry{"box": {Template: "box.html"}})
	in := `<p>Hi <span data-jinja-tag="box" data-jinja-params='{"text":"x"}'></span></p>`

	got := NewExpander(registry, renderer).Expand(context.Background(), in)

	if got != "<p>Hi <strong>x</strong></p>" {
		t.Fatalf("unexpected output %q", got)
	}
	if strings.Index(got, "Hi") > strings.Index(got, "<strong>x</strong>") {
		t.Fatalf("expected Hi before the rendered box: %q", got)
	}
}

func TestExpandDropsNonIdentifierParamKeys(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"box.html":  "<strong>{{ text }}</strong>",
		"attr.html": `<em data-id="{% for k, v in params %}{% if k == "data-id" %}{{ v }}{% endif %}{% endfor %}">{{ params.text }}</em>`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	renderer, err := rendering.New(dir)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	registry := NewRegistry(map[string]Entry{
		"box":  {Template: "box.html"},
		"attr": {Template: "attr.html"},
	})
	in := `<p><span data-jinja-tag="box" data-jinja-params='{"text":"x","data-id":"1"}'></span>` +
		`<span data-jinja-tag="attr" data-jinja-params='{"text":"y","data-id":"7"}'></span></p>`

	got, report := NewExpander(registry, renderer).ExpandWithReport(context.Background(), in)

	if got != `<p><strong>x</strong><em data-id="7">y</em></p>` {
		t.Fatalf("unexpected output %q", got)
	}
	if report.Failed() != 0 {
		t.Fatalf("expected no failed markers, got %+v", report.Outcomes)
	}
}

func TestTemplateContext(t *testing.T) {
	ctx, dropped := templateContext(map[string]any{
		"text":    "x",
		"_under":  1,
		"v2":      true,
		"data-id": "1",
		"2nd":     "no",
		"":        "blank",
	})

	want := map[string]any{
		"text":   "x",
		"_under": 1,
		"v2":     true,
		ParamsVar: map[string]any{
			"text": "x", "_under": 1, "v2": true, "data-id": "1", "2nd": "no", "": "blank",
		},
	}
	if diff := cmp.Diff(want, ctx); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", "2nd", "data-id"}, dropped); diff != "" {
		t.Fatalf("dropped mismatch (-want +got):\n%s", diff)
	}
}
