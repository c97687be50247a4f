package microtemplates

import (
	"maps"
	"slices"
	"strings"
)

// Kind tells the editor whether a microtemplate is placed as a block or
// inline. It does not change how the generator expands it.
type Kind string

const (
	KindBlock  Kind = "block"
	KindInline Kind = "inline"
)

// Attribute describes one parameter accepted by a microtemplate.
type Attribute struct {
	Type        string `json:"type,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Entry is a registered microtemplate. Template is a path relative to the
// microtemplate directory; an empty Template marks the entry misconfigured.
type Entry struct {
	Key         string               `json:"-"`
	DisplayName string               `json:"displayName,omitempty"`
	Description string               `json:"description,omitempty"`
	Type        Kind                 `json:"type,omitempty"`
	Attributes  map[string]Attribute `json:"attributes,omitempty"`
	Template    string               `json:"template,omitempty"`
}

// Defaults returns the declared attribute defaults.
func (e Entry) Defaults() map[string]any {
	out := map[string]any{}
	for name, attr := range e.Attributes {
		if attr.Default != nil {
			out[name] = attr.Default
		}
	}
	return out
}

// ResolutionKind is the outcome of a registry lookup.
type ResolutionKind int

const (
	Unknown ResolutionKind = iota
	Misconfigured
	Resolved
)

func (k ResolutionKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Misconfigured:
		return "misconfigured"
	default:
		return "unknown"
	}
}

// Resolution is returned by Registry.Resolve for every key.
type Resolution struct {
	Kind  ResolutionKind
	Key   string
	Entry Entry
}

// Registry maps template keys to entries. It is read-only after construction.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry copies entries into a registry.
func NewRegistry(entries map[string]Entry) *Registry {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for key, entry := range entries {
		entry.Key = key
		entry.Attributes = maps.Clone(entry.Attributes)
		r.entries[key] = entry
	}
	return r
}

// EmptyRegistry returns a loaded registry with no entries.
func EmptyRegistry() *Registry {
	return NewRegistry(nil)
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.entries))
}

// Resolve looks key up. It never fails: a missing key resolves to Unknown and
// an entry without a template file to Misconfigured.
func (r *Registry) Resolve(key string) Resolution {
	res := Resolution{Kind: Unknown, Key: key}
	if r == nil {
		return res
	}
	entry, ok := r.entries[key]
	if !ok {
		return res
	}
	res.Entry = entry
	if strings.TrimSpace(entry.Template) == "" {
		res.Kind = Misconfigured
		return res
	}
	res.Kind = Resolved
	return res
}
