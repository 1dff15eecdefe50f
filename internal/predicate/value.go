package predicate

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// valuesEqual compares two decoded values structurally. Numbers compare by
// value regardless of representation (json.Number from responses, int or
// float64 from suite documents); booleans never equal numbers.
func valuesEqual(actual, expected any) bool {
	if an, ok := toNumber(actual); ok {
		en, ok := toNumber(expected)
		return ok && numbersEqual(an, en)
	}

	switch a := actual.(type) {
	case nil:
		return expected == nil
	case string:
		e, ok := expected.(string)
		return ok && a == e
	case bool:
		e, ok := expected.(bool)
		return ok && a == e
	case []any:
		e, ok := expected.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range a {
			if !valuesEqual(a[i], e[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		e, ok := expected.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, av := range a {
			ev, ok := e[k]
			if !ok || !valuesEqual(av, ev) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(actual, expected)
	}
}

// number keeps integer values exact when both sides are integral.
type number struct {
	i     int64
	f     float64
	isInt bool
}

func numbersEqual(a, b number) bool {
	if a.isInt && b.isInt {
		return a.i == b.i
	}
	return a.f == b.f
}

// toNumber converts numeric values to a number. Booleans are not numbers.
func toNumber(v any) (number, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return number{i: i, f: float64(i), isInt: true}, true
		}
		f, err := n.Float64()
		if err != nil {
			return number{}, false
		}
		return number{f: f}, true
	case int:
		return number{i: int64(n), f: float64(n), isInt: true}, true
	case int64:
		return number{i: n, f: float64(n), isInt: true}, true
	case int32:
		return number{i: int64(n), f: float64(n), isInt: true}, true
	case uint64:
		if n > math.MaxInt64 {
			return number{f: float64(n)}, true
		}
		return number{i: int64(n), f: float64(n), isInt: true}, true
	case float64:
		return number{f: n}, true
	case float32:
		return number{f: float64(n)}, true
	default:
		return number{}, false
	}
}

// isIntegerLiteral reports whether v is an integral number as written. A JSON
// literal such as 7.0 is a float, matching how the document spelled it.
func isIntegerLiteral(v any) bool {
	switch n := v.(type) {
	case json.Number:
		return !strings.ContainsAny(string(n), ".eE")
	case int, int64, int32, uint64:
		return true
	default:
		return false
	}
}

func isFloatLiteral(v any) bool {
	switch n := v.(type) {
	case json.Number:
		return strings.ContainsAny(string(n), ".eE")
	case float64, float32:
		return true
	default:
		return false
	}
}

// typeName names the semantic type of a decoded value.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "list"
	case map[string]any, map[any]any:
		return "dict"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if isIntegerLiteral(v) {
		return "integer"
	}
	if isFloatLiteral(v) {
		return "float"
	}
	return fmt.Sprintf("%T", v)
}

// truthy follows the usual falsiness rules: null, false, zero, and empty
// strings or collections are falsy.
func truthy(v any) bool {
	if n, ok := toNumber(v); ok {
		if n.isInt {
			return n.i != 0
		}
		return n.f != 0
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case map[any]any:
		return len(t) > 0
	default:
		return true
	}
}

// display renders a value for failure messages.
func display(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	case []any, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}
