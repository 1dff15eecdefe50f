package suite

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/argus-api/argus/internal/failure"
)

// BackReferenceField is the mapping key that marks a back-reference.
const BackReferenceField = "response_from"

var requiredFields = []string{"name", "request", "expected"}

// Methods lists the accepted HTTP verbs.
var Methods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD", "CONNECT", "TRACE"}

// DecodeTest converts a raw test mapping into a TestCase. Errors are schema
// failures naming what is missing.
func DecodeTest(raw any, index int) (*TestCase, error) {
	name := DisplayName(raw, index)

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &failure.Error{Kind: failure.KindSchema, Test: name, Msg: fmt.Sprintf("test must be a mapping, got %T", raw)}
	}

	var missing []string
	for _, field := range requiredFields {
		if v, ok := m[field]; !ok || v == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, &failure.Error{Kind: failure.KindSchema, Test: name, Msg: "test missing required keys: " + strings.Join(missing, ", ")}
	}

	tc := &TestCase{Index: index, Raw: m}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           tc,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, &failure.Error{Kind: failure.KindSchema, Test: name, Err: err}
	}
	if err := dec.Decode(m); err != nil {
		return nil, &failure.Error{Kind: failure.KindSchema, Test: name, Msg: "decoding test", Err: err}
	}

	switch {
	case tc.Name == "":
		return nil, &failure.Error{Kind: failure.KindSchema, Test: name, Msg: "test name must not be empty"}
	case tc.Request.Endpoint == "":
		return nil, &failure.Error{Kind: failure.KindSchema, Test: name, Msg: "request.endpoint is required"}
	case tc.Request.Method == "":
		return nil, &failure.Error{Kind: failure.KindSchema, Test: name, Msg: "request.method is required"}
	case tc.Expected.Status == 0:
		return nil, &failure.Error{Kind: failure.KindSchema, Test: name, Msg: "expected.status is required"}
	}
	return tc, nil
}

// DisplayName returns the test's name, or a positional label when the raw
// test has no usable name.
func DisplayName(raw any, index int) string {
	if m, ok := raw.(map[string]any); ok {
		if s, ok := m["name"].(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("test #%d", index+1)
}

// NormalizeMethod upper-cases method and checks it against Methods.
func NormalizeMethod(method string) (string, error) {
	up := strings.ToUpper(strings.TrimSpace(method))
	for _, m := range Methods {
		if m == up {
			return up, nil
		}
	}
	return "", failure.New(failure.KindVerb, "invalid HTTP verb: %q", method)
}

// HasBackReference reports whether v contains a back-reference mapping at any
// depth.
func HasBackReference(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t[BackReferenceField]; ok {
			return true
		}
		for _, val := range t {
			if HasBackReference(val) {
				return true
			}
		}
	case []any:
		for _, val := range t {
			if HasBackReference(val) {
				return true
			}
		}
	}
	return false
}
