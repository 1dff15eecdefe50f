// Package predicate implements the validation predicates that can be attached
// to a response rule. The set is closed: each predicate is a distinct type
// carrying its typed argument, and Check dispatches over all of them.
package predicate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/itchyny/timefmt-go"
)

// Predicate names as they appear in suite documents, in evaluation order.
const (
	NameType        = "type"
	NameEqual       = "equal"
	NameNotEqual    = "not_equal"
	NameContains    = "contains"
	NameNotContains = "not_contains"
	NameEmpty       = "empty"
	NameNotEmpty    = "not_empty"
	NameRegex       = "regex"
	NameDateFormat  = "date_format"
	NameRange       = "range"
)

// Names lists every predicate name in evaluation order.
var Names = []string{
	NameType, NameEqual, NameNotEqual, NameContains, NameNotContains,
	NameEmpty, NameNotEmpty, NameRegex, NameDateFormat, NameRange,
}

var (
	// ErrMismatch marks a value that was checked and did not satisfy the predicate.
	ErrMismatch = errors.New("value mismatch")
	// ErrUnsupportedType marks a value whose type the predicate cannot operate on.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrUnknownPredicate is returned by Compile for names outside the library.
	ErrUnknownPredicate = errors.New("unknown predicate")
	// ErrInvalidArgument is returned by Compile when an argument has the wrong shape.
	ErrInvalidArgument = errors.New("invalid predicate argument")
)

// Failure is returned by Check when a predicate does not hold.
type Failure struct {
	Predicate string
	Key       string
	Reason    string
	Err       error // ErrMismatch or ErrUnsupportedType
}

func (f *Failure) Error() string { return f.Reason }

func (f *Failure) Unwrap() error { return f.Err }

func mismatch(p, key, format string, args ...any) *Failure {
	return &Failure{Predicate: p, Key: key, Reason: fmt.Sprintf("key %q: ", key) + fmt.Sprintf(format, args...), Err: ErrMismatch}
}

func unsupported(p, key, format string, args ...any) *Failure {
	return &Failure{Predicate: p, Key: key, Reason: fmt.Sprintf("key %q: ", key) + fmt.Sprintf(format, args...), Err: ErrUnsupportedType}
}

// Predicate is one compiled validation predicate.
type Predicate interface {
	Name() string
	predicate()
}

// TypeName is a semantic type accepted by the type predicate.
type TypeName string

const (
	TypeList    TypeName = "list"
	TypeDict    TypeName = "dict"
	TypeString  TypeName = "string"
	TypeInteger TypeName = "integer"
	TypeFloat   TypeName = "float"
	TypeBoolean TypeName = "boolean"
	TypeNull    TypeName = "null"
)

var typeAliases = map[string]TypeName{
	"list": TypeList, "array": TypeList,
	"dict": TypeDict, "mapping": TypeDict, "map": TypeDict, "object": TypeDict,
	"str": TypeString, "string": TypeString,
	"int": TypeInteger, "integer": TypeInteger,
	"float": TypeFloat,
	"bool": TypeBoolean, "boolean": TypeBoolean,
	"null": TypeNull, "none": TypeNull,
}

type (
	// Type requires the value to be of a semantic type.
	Type struct{ Want TypeName }
	// Equal requires structural equality with Want.
	Equal struct{ Want any }
	// NotEqual requires structural inequality with Want.
	NotEqual struct{ Want any }
	// Contains requires Want to be a substring or list member of the value.
	Contains struct{ Want any }
	// NotContains requires Want to be absent from the value.
	NotContains struct{ Want any }
	// Empty requires a falsy value.
	Empty struct{}
	// NotEmpty requires a truthy value.
	NotEmpty struct{}
	// Regex requires the value to match Pattern from its first character.
	Regex struct {
		Pattern string
		re      *regexp.Regexp
	}
	// DateFormat requires the value to parse under a strftime-style layout.
	DateFormat struct{ Layout string }
	// Range requires Min <= value <= Max.
	Range struct{ Min, Max float64 }
)

func (Type) Name() string        { return NameType }
func (Equal) Name() string       { return NameEqual }
func (NotEqual) Name() string    { return NameNotEqual }
func (Contains) Name() string    { return NameContains }
func (NotContains) Name() string { return NameNotContains }
func (Empty) Name() string       { return NameEmpty }
func (NotEmpty) Name() string    { return NameNotEmpty }
func (Regex) Name() string       { return NameRegex }
func (DateFormat) Name() string  { return NameDateFormat }
func (Range) Name() string       { return NameRange }

func (Type) predicate()        {}
func (Equal) predicate()       {}
func (NotEqual) predicate()    {}
func (Contains) predicate()    {}
func (NotContains) predicate() {}
func (Empty) predicate()       {}
func (NotEmpty) predicate()    {}
func (Regex) predicate()       {}
func (DateFormat) predicate()  {}
func (Range) predicate()       {}

// Compile builds the predicate called name with its document argument.
// empty and not_empty ignore their argument.
func Compile(name string, arg any) (Predicate, error) {
	switch name {
	case NameType:
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("%w: type expects a type name, got %s", ErrInvalidArgument, display(arg))
		}
		tn, ok := typeAliases[strings.ToLower(s)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown type name %q", ErrInvalidArgument, s)
		}
		return Type{Want: tn}, nil
	case NameEqual:
		return Equal{Want: arg}, nil
	case NameNotEqual:
		return NotEqual{Want: arg}, nil
	case NameContains:
		return Contains{Want: arg}, nil
	case NameNotContains:
		return NotContains{Want: arg}, nil
	case NameEmpty:
		return Empty{}, nil
	case NameNotEmpty:
		return NotEmpty{}, nil
	case NameRegex:
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("%w: regex expects a pattern string, got %s", ErrInvalidArgument, display(arg))
		}
		re, err := regexp.Compile("^(?:" + s + ")")
		if err != nil {
			return nil, fmt.Errorf("%w: invalid regex %q: %v", ErrInvalidArgument, s, err)
		}
		return Regex{Pattern: s, re: re}, nil
	case NameDateFormat:
		s, ok := arg.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%w: date_format expects a layout string, got %s", ErrInvalidArgument, display(arg))
		}
		return DateFormat{Layout: s}, nil
	case NameRange:
		bounds, ok := arg.([]any)
		if !ok || len(bounds) != 2 {
			return nil, fmt.Errorf("%w: range expects [min, max], got %s", ErrInvalidArgument, display(arg))
		}
		lo, okLo := toNumber(bounds[0])
		hi, okHi := toNumber(bounds[1])
		if !okLo || !okHi {
			return nil, fmt.Errorf("%w: range bounds must be numbers, got %s", ErrInvalidArgument, display(arg))
		}
		return Range{Min: lo.f, Max: hi.f}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownPredicate, name)
	}
}

// Check applies p to actual. key is only used in failure messages.
func Check(p Predicate, key string, actual any) error {
	switch p := p.(type) {
	case Type:
		return checkType(p, key, actual)
	case Equal:
		if !valuesEqual(actual, p.Want) {
			return mismatch(NameEqual, key, "expected value %s, but got %s", display(p.Want), display(actual))
		}
		return nil
	case NotEqual:
		if valuesEqual(actual, p.Want) {
			return mismatch(NameNotEqual, key, "expected value not to be %s, but got %s", display(p.Want), display(actual))
		}
		return nil
	case Contains:
		return checkMembership(NameContains, key, actual, p.Want, true)
	case NotContains:
		return checkMembership(NameNotContains, key, actual, p.Want, false)
	case Empty:
		if truthy(actual) {
			return mismatch(NameEmpty, key, "expected to be empty, but got %s", display(actual))
		}
		return nil
	case NotEmpty:
		if !truthy(actual) {
			return mismatch(NameNotEmpty, key, "expected to be not empty, but got %s", display(actual))
		}
		return nil
	case Regex:
		s, ok := actual.(string)
		if !ok {
			return unsupported(NameRegex, key, "regex requires a string, got %s", typeName(actual))
		}
		re := p.re
		if re == nil {
			re = regexp.MustCompile("^(?:" + p.Pattern + ")")
		}
		if !re.MatchString(s) {
			return mismatch(NameRegex, key, "value %s does not match the regex pattern %q", display(s), p.Pattern)
		}
		return nil
	case DateFormat:
		s, ok := actual.(string)
		if !ok {
			return unsupported(NameDateFormat, key, "date_format requires a string, got %s", typeName(actual))
		}
		if _, err := timefmt.Parse(s, p.Layout); err != nil {
			return mismatch(NameDateFormat, key, "value %s does not match the expected date format %q", display(s), p.Layout)
		}
		return nil
	case Range:
		n, ok := toNumber(actual)
		if !ok {
			return unsupported(NameRange, key, "range requires a number, got %s", typeName(actual))
		}
		if n.f < p.Min || n.f > p.Max {
			return mismatch(NameRange, key, "value %s is not within the expected range [%v, %v]", display(actual), p.Min, p.Max)
		}
		return nil
	default:
		panic(fmt.Sprintf("predicate: unhandled predicate type %T", p))
	}
}

func checkType(p Type, key string, actual any) error {
	var ok bool
	switch p.Want {
	case TypeList:
		_, ok = actual.([]any)
	case TypeDict:
		switch actual.(type) {
		case map[string]any, map[any]any:
			ok = true
		}
	case TypeString:
		_, ok = actual.(string)
	case TypeInteger:
		ok = isIntegerLiteral(actual)
	case TypeFloat:
		ok = isFloatLiteral(actual)
	case TypeBoolean:
		_, ok = actual.(bool)
	case TypeNull:
		ok = actual == nil
	}
	if !ok {
		return mismatch(NameType, key, "expected to be a %s, but got %s", p.Want, typeName(actual))
	}
	return nil
}

func checkMembership(name, key string, actual, want any, shouldContain bool) error {
	var found bool
	switch a := actual.(type) {
	case string:
		sub, ok := want.(string)
		if !ok {
			return unsupported(name, key, "cannot search a string for %s (%s)", display(want), typeName(want))
		}
		found = strings.Contains(a, sub)
	case []any:
		for _, item := range a {
			if valuesEqual(item, want) {
				found = true
				break
			}
		}
	default:
		return unsupported(name, key, "has unsupported type %s, expected a string or list", typeName(actual))
	}

	if found != shouldContain {
		action := "contain"
		if !shouldContain {
			action = "not contain"
		}
		return mismatch(name, key, "(%s) should %s %s, but got %s", typeName(actual), action, display(want), display(actual))
	}
	return nil
}
