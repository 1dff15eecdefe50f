// Package deps resolves back-references: value slots in a test that name
// another test's captured response instead of holding a literal.
//
// A back-reference has the form
//
//	response_from:
//	  name: create user   # source test
//	  key: data.id        # path into its captured response
//
// The older form that nests the key as response.json[0].key is accepted too.
package deps

import (
	"errors"
	"fmt"

	"github.com/mohae/deepcopy"

	"github.com/argus-api/argus/internal/failure"
	"github.com/argus-api/argus/internal/jsonpath"
	"github.com/argus-api/argus/internal/suite"
)

var (
	// ErrReferenceNotFound means the source test has no captured response.
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrNullValue means the source response has no value at the referenced key.
	ErrNullValue = errors.New("referenced value is null")
)

// Reader is the read side of the response store.
type Reader interface {
	Lookup(name string) (any, bool)
}

// Reference is a parsed back-reference.
type Reference struct {
	Source string
	Key    string
}

// ParseReference reports whether v is a back-reference and, if so, parses
// it. A back-reference that does not name both a source and a key is an
// error.
func ParseReference(v any) (Reference, bool, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Reference{}, false, nil
	}
	raw, ok := m[suite.BackReferenceField]
	if !ok {
		return Reference{}, false, nil
	}

	spec, ok := raw.(map[string]any)
	if !ok {
		return Reference{}, true, fmt.Errorf("%s must be a mapping, got %T", suite.BackReferenceField, raw)
	}
	source, _ := spec["name"].(string)
	if source == "" {
		return Reference{}, true, fmt.Errorf("%s is missing the source test name", suite.BackReferenceField)
	}

	key, _ := spec["key"].(string)
	if key == "" {
		key = legacyKey(spec)
	}
	if key == "" {
		return Reference{}, true, fmt.Errorf("%s to %q does not name a key", suite.BackReferenceField, source)
	}
	return Reference{Source: source, Key: key}, true, nil
}

// legacyKey reads response.json[0].key.
func legacyKey(spec map[string]any) string {
	resp, _ := spec["response"].(map[string]any)
	rules, _ := resp["json"].([]any)
	if len(rules) == 0 {
		return ""
	}
	first, _ := rules[0].(map[string]any)
	key, _ := first["key"].(string)
	return key
}

// Lookup reads the value a reference points at.
func Lookup(st Reader, ref Reference, slot string) (any, error) {
	body, ok := st.Lookup(ref.Source)
	if !ok {
		return nil, &failure.Error{
			Kind: failure.KindDependency,
			Msg:  fmt.Sprintf("response %q not found for %s", ref.Source, slot),
			Err:  ErrReferenceNotFound,
		}
	}

	val, err := jsonpath.Navigate(body, ref.Key)
	if err != nil || val == nil {
		return nil, &failure.Error{
			Kind: failure.KindDependency,
			Msg:  fmt.Sprintf("value for key %q in response %q is null (needed by %s)", ref.Key, ref.Source, slot),
			Err:  ErrNullValue,
		}
	}
	return val, nil
}

// Resolve returns a copy of tc in which every back-reference in the request
// params, the request body, and the response rules is replaced by the live
// value from st. tc is left untouched.
func Resolve(tc *suite.TestCase, st Reader) (*suite.TestCase, error) {
	out := deepcopy.Copy(*tc).(suite.TestCase)
	out.Raw = tc.Raw

	for name, v := range out.Request.Params {
		val, err := resolveValue(st, v, fmt.Sprintf("parameter %q", name))
		if err != nil {
			return nil, err
		}
		out.Request.Params[name] = val
	}

	body, err := resolveTree(st, out.Request.Body, "body")
	if err != nil {
		return nil, err
	}
	out.Request.Body = body

	for i, rule := range out.Expected.Response.JSON {
		ruleKey, _ := rule["key"].(string)
		for field, v := range rule {
			if field == "key" {
				continue
			}
			val, err := resolveValue(st, v, fmt.Sprintf("rule %q field %q", ruleKey, field))
			if err != nil {
				return nil, err
			}
			out.Expected.Response.JSON[i][field] = val
		}
	}

	return &out, nil
}

func resolveValue(st Reader, v any, slot string) (any, error) {
	ref, isRef, err := ParseReference(v)
	if err != nil {
		return nil, &failure.Error{Kind: failure.KindSchema, Msg: slot, Err: err}
	}
	if !isRef {
		return v, nil
	}
	return Lookup(st, ref, slot)
}

// resolveTree walks v and replaces back-references at any depth.
func resolveTree(st Reader, v any, path string) (any, error) {
	if _, isRef, _ := ParseReference(v); isRef {
		return resolveValue(st, v, path)
	}
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			r, err := resolveTree(st, val, path+"."+k)
			if err != nil {
				return nil, err
			}
			t[k] = r
		}
	case []any:
		for i, val := range t {
			r, err := resolveTree(st, val, fmt.Sprintf("%s.%d", path, i))
			if err != nil {
				return nil, err
			}
			t[i] = r
		}
	}
	return v, nil
}
