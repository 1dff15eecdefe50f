package predicate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/argus-api/argus/internal/jsonpath"
)

// Rule is a compiled validation rule: a key into the response document and
// the predicates applied to the value found there.
type Rule struct {
	Key        string
	Predicates []Predicate
}

// CompileRule compiles one response rule mapping. The "key" field is
// required; every other field must name a predicate. Predicates are ordered
// as in Names regardless of their order in the document.
func CompileRule(raw map[string]any) (Rule, error) {
	keyVal, ok := raw["key"]
	if !ok {
		return Rule{}, fmt.Errorf("rule is missing required field \"key\"")
	}
	key, ok := keyVal.(string)
	if !ok || key == "" {
		return Rule{}, fmt.Errorf("rule key must be a non-empty string, got %s", display(keyVal))
	}

	var unknown []string
	for field := range raw {
		if field == "key" {
			continue
		}
		if !isName(field) {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Rule{}, fmt.Errorf("rule %q: %w: %s", key, ErrUnknownPredicate, strings.Join(unknown, ", "))
	}

	r := Rule{Key: key}
	for _, name := range Names {
		arg, ok := raw[name]
		if !ok {
			continue
		}
		p, err := Compile(name, arg)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: %w", key, err)
		}
		r.Predicates = append(r.Predicates, p)
	}
	return r, nil
}

// Evaluate resolves the rule key in doc and applies every predicate in
// order, stopping at the first failure. A rule with no predicates only
// requires the key to be reachable.
func (r Rule) Evaluate(doc any) error {
	actual, err := jsonpath.Navigate(doc, r.Key)
	if err != nil {
		return err
	}
	for _, p := range r.Predicates {
		if err := Check(p, r.Key, actual); err != nil {
			return err
		}
	}
	return nil
}

func isName(s string) bool {
	for _, n := range Names {
		if n == s {
			return true
		}
	}
	return false
}
