// Package jsonpath navigates decoded JSON documents. Keys are dot-separated
// paths ("data.items.0.id") where a segment indexes a sequence when it parses
// as an integer. Keys starting with "$" are evaluated as full JSONPath
// expressions.
package jsonpath

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	pjsonpath "github.com/PaesslerAG/jsonpath"
)

// NotFoundError reports that a key could not be resolved against a document.
type NotFoundError struct {
	Key       string // the full key being resolved
	Segment   string // the segment that failed
	Structure string // description of the node the segment was applied to
}

func (e *NotFoundError) Error() string {
	if e.Segment == "" || e.Segment == e.Key {
		return fmt.Sprintf("key %q not found in %s", e.Key, e.Structure)
	}
	return fmt.Sprintf("key %q not found: segment %q missing in %s", e.Key, e.Segment, e.Structure)
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Navigate returns the value addressed by key in root.
func Navigate(root any, key string) (any, error) {
	if strings.HasPrefix(key, "$") {
		return evalExpression(root, key)
	}
	if key == "" {
		return nil, &NotFoundError{Key: key, Structure: Describe(root)}
	}

	current := root
	for _, seg := range strings.Split(key, ".") {
		next, ok := step(current, seg)
		if !ok {
			return nil, &NotFoundError{Key: key, Segment: seg, Structure: Describe(current)}
		}
		current = next
	}
	return current, nil
}

// step applies one path segment to node.
func step(node any, seg string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[seg]
		return v, ok
	case map[any]any:
		v, ok := n[seg]
		return v, ok
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(n) {
			return nil, false
		}
		return n[idx], true
	default:
		return nil, false
	}
}

func evalExpression(root any, expr string) (any, error) {
	v, err := pjsonpath.Get(expr, root)
	if err != nil {
		return nil, &NotFoundError{Key: expr, Segment: expr, Structure: Describe(root) + " (" + err.Error() + ")"}
	}
	return v, nil
}

// Describe returns a short human-readable description of a decoded JSON node.
func Describe(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 8 {
			keys = append(keys[:8], "...")
		}
		return fmt.Sprintf("object with keys [%s]", strings.Join(keys, ", "))
	case map[any]any:
		return fmt.Sprintf("object with %d keys", len(n))
	case []any:
		return fmt.Sprintf("array of length %d", len(n))
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64, int32, uint64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ParseJSON decodes body into a generic structure. Numbers are kept as
// json.Number so integer and float literals stay distinguishable.
func ParseJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("response body is not valid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("response body is not valid JSON: trailing data after document")
	}
	return doc, nil
}
