// Package suite models YAML test suites: loading documents, substituting
// constants, and decoding test cases into typed form.
package suite

// Suite is a parsed suite document. Tests holds the raw test mappings with
// suite-level constants already substituted; each one is decoded on its own
// so a malformed test fails alone instead of failing the whole suite.
type Suite struct {
	Source    string
	Constants map[string]any
	Tests     []any
}

// TestCase is a single request/expectation pair.
type TestCase struct {
	Index       int            `mapstructure:"-"`
	Raw         map[string]any `mapstructure:"-"`
	Name        string         `mapstructure:"name"`
	Description string         `mapstructure:"description"`
	Log         string         `mapstructure:"log"`
	Request     Request        `mapstructure:"request"`
	Expected    Expected       `mapstructure:"expected"`
}

// Request defines the HTTP request a test issues. Params and Body may hold
// back-references until they are resolved.
type Request struct {
	Method   string            `mapstructure:"method"`
	Endpoint string            `mapstructure:"endpoint"`
	Params   map[string]any    `mapstructure:"params"`
	Headers  map[string]string `mapstructure:"headers"`
	Body     any               `mapstructure:"body"`
}

// Expected defines what the response must look like.
type Expected struct {
	Status   int          `mapstructure:"status"`
	Response ResponseSpec `mapstructure:"response"`
}

// ResponseSpec holds the body expectations. Each JSON entry is a rule
// mapping: a "key" plus predicate fields.
type ResponseSpec struct {
	Type string           `mapstructure:"type"`
	JSON []map[string]any `mapstructure:"json"`
}

// Dependent reports whether the test holds a back-reference anywhere in its
// definition.
func (tc *TestCase) Dependent() bool {
	return HasBackReference(tc.Raw)
}
