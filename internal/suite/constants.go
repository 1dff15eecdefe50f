package suite

import (
	"sort"
	"strings"
)

// ResolveConstants returns a copy of v in which every string leaf has each
// {{name}} placeholder replaced by the string value of the matching
// constant. Non-string constants are never substituted and unknown
// placeholders are left as written. v itself is not modified.
func ResolveConstants(constants map[string]any, v any) any {
	names := make([]string, 0, len(constants))
	for name, val := range constants {
		if _, ok := val.(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	r := resolver{constants: constants, names: names}
	return r.resolve(v)
}

type resolver struct {
	constants map[string]any
	names     []string
}

func (r resolver) resolve(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = r.resolve(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = r.resolve(val)
		}
		return out
	case string:
		return r.expand(t)
	default:
		return v
	}
}

func (r resolver) expand(s string) string {
	if len(r.names) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	for _, name := range r.names {
		s = strings.ReplaceAll(s, "{{"+name+"}}", r.constants[name].(string))
	}
	return s
}
