package microtemplates

import (
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"strings"
)

// ParamsVar names the template variable that carries every param, including
// keys that are not valid template identifiers.
const ParamsVar = "params"

var errParamsNotObject = errors.New("params must be a JSON object")

// parseParams decodes a marker's params attribute. An absent or blank value
// is an empty map; anything else must be a JSON object.
func parseParams(raw string, present bool) (map[string]any, error) {
	if !present || strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return map[string]any{}, err
	}
	params, ok := decoded.(map[string]any)
	if !ok {
		return map[string]any{}, errParamsNotObject
	}
	return params, nil
}

// mergeParams layers explicit params over the entry defaults.
func mergeParams(defaults, params map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(params))
	maps.Copy(out, defaults)
	maps.Copy(out, params)
	return out
}

// templateContext returns the variables passed to a microtemplate. Keys that
// are not identifiers cannot be template variables and are returned as
// dropped; they stay reachable through ParamsVar. An explicit param named
// ParamsVar wins over the full map.
func templateContext(params map[string]any) (map[string]any, []string) {
	ctx := make(map[string]any, len(params)+1)
	ctx[ParamsVar] = maps.Clone(params)
	var dropped []string
	for key, value := range params {
		if !isIdentifier(key) {
			dropped = append(dropped, key)
			continue
		}
		ctx[key] = value
	}
	slices.Sort(dropped)
	return ctx, dropped
}

func isIdentifier(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
