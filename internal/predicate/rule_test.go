package predicate

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/argus-api/argus/internal/jsonpath"
)

func TestCompileRule_OrdersPredicates(t *testing.T) {
	r, err := CompileRule(map[string]any{
		"key":       "data.name",
		"not_empty": true,
		"type":      "str",
		"regex":     "^A",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Key != "data.name" {
		t.Errorf("Key = %q", r.Key)
	}

	var names []string
	for _, p := range r.Predicates {
		names = append(names, p.Name())
	}
	want := []string{NameType, NameNotEmpty, NameRegex}
	if len(names) != len(want) {
		t.Fatalf("predicates = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("predicate[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestCompileRule_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing key", map[string]any{"equal": 1}},
		{"empty key", map[string]any{"key": ""}},
		{"unknown predicate", map[string]any{"key": "a", "equals": 1}},
		{"bad argument", map[string]any{"key": "a", "range": []any{1}}},
		{"unknown type name", map[string]any{"key": "a", "type": "tuple"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CompileRule(tt.raw); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRuleEvaluate(t *testing.T) {
	doc := map[string]any{
		"id":    json.Number("7"),
		"name":  "Alice",
		"roles": []any{"admin"},
	}

	pass, err := CompileRule(map[string]any{"key": "id", "type": "int", "range": []any{1, 10}})
	if err != nil {
		t.Fatal(err)
	}
	if err := pass.Evaluate(doc); err != nil {
		t.Errorf("expected pass, got %v", err)
	}

	keyOnly, _ := CompileRule(map[string]any{"key": "roles"})
	if err := keyOnly.Evaluate(doc); err != nil {
		t.Errorf("key-only rule should pass when reachable, got %v", err)
	}

	missing, _ := CompileRule(map[string]any{"key": "email"})
	if err := missing.Evaluate(doc); !jsonpath.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestRuleEvaluate_FirstFailureWins(t *testing.T) {
	doc := map[string]any{"name": "Alice"}
	r, err := CompileRule(map[string]any{"key": "name", "type": "list", "equal": "Bob"})
	if err != nil {
		t.Fatal(err)
	}

	err = r.Evaluate(doc)
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if f.Predicate != NameType {
		t.Errorf("failed predicate = %s, want %s", f.Predicate, NameType)
	}
}
