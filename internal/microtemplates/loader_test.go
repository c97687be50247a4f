package microtemplates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleRegistry = `{
  // Editor-facing catalogue of embeddable templates.
  "box": {
    "displayName": "Box",
    "type": "inline",
    "template": "box.html",
    "attributes": {
      "text": {"type": "string", "default": "hello", "description": "Box text"},
    },
  },
  "broken": {"displayName": "No template"},
}`

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "microtemplates.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	return path
}

func TestLoadRegistryParsesJSONC(t *testing.T) {
	registry := LoadRegistry(writeRegistry(t, sampleRegistry), nil)

	if diff := cmp.Diff([]string{"box", "broken"}, registry.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	box := registry.Resolve("box")
	if box.Kind != Resolved || box.Entry.Template != "box.html" || box.Entry.Type != KindInline {
		t.Fatalf("unexpected resolution %+v", box)
	}
	if diff := cmp.Diff(map[string]any{"text": "hello"}, box.Entry.Defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if got := registry.Resolve("broken").Kind; got != Misconfigured {
		t.Fatalf("expected misconfigured, got %s", got)
	}
	if got := registry.Resolve("nope").Kind; got != Unknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestLoadRegistryDegradesToEmpty(t *testing.T) {
	cases := map[string]string{
		"missing":    filepath.Join(t.TempDir(), "absent.json"),
		"malformed":  writeRegistry(t, `{"box": `),
		"schema":     writeRegistry(t, `{"box": {"template": 42}}`),
		"not object": writeRegistry(t, `["box"]`),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			registry := LoadRegistry(path, nil)
			if registry == nil || registry.Len() != 0 {
				t.Fatalf("expected empty registry, got %v", registry)
			}
			if _, err := LoadRegistryStrict(path); err == nil {
				t.Fatal("expected strict load to fail")
			}
		})
	}
}

func TestNilRegistryResolvesUnknown(t *testing.T) {
	var registry *Registry
	if registry.Resolve("x").Kind != Unknown || registry.Len() != 0 || registry.Keys() != nil {
		t.Fatal("nil registry should behave as empty")
	}
}
