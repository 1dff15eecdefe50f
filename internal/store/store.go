// Package store holds the mutable state shared by concurrently running tests:
// the captured response bodies keyed by test name and the ordered log of run
// results. All methods are safe for concurrent use.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/argus-api/argus/internal/failure"
)

// Status is the outcome of a single test.
type Status string

const (
	StatusOK     Status = "OK"
	StatusFailed Status = "Failed"
)

// RunResult records the outcome of one test case.
type RunResult struct {
	Name      string
	Index     int // declaration position within the suite
	Status    Status
	Error     string // empty when passed
	Kind      failure.Kind
	Execution time.Duration
	// Network is the request round-trip time; only meaningful when
	// NetworkMeasured is set.
	Network         time.Duration
	NetworkMeasured bool
}

// Passed reports whether the test succeeded.
func (r RunResult) Passed() bool { return r.Status == StatusOK }

// Store is the response store and result log for one suite run.
type Store struct {
	mu        sync.RWMutex
	responses map[string]any
	order     []string // capture order for deterministic listing
	results   []RunResult
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		responses: make(map[string]any),
		order:     make([]string, 0),
	}
}

// Save records the parsed response body captured for a test. A later save
// under the same name overwrites the earlier body but keeps its position in
// the capture order. Save reports whether an entry was overwritten.
func (s *Store) Save(name string, body any) (overwritten bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.responses[name]; exists {
		overwritten = true
	} else {
		s.order = append(s.order, name)
	}
	s.responses[name] = body
	return overwritten
}

// Lookup returns the captured body for a test name.
func (s *Store) Lookup(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.responses[name]
	return body, ok
}

// Names returns the names of all captured responses in capture order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Append adds a result to the log. Results are kept in completion order.
func (s *Store) Append(r RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

// Results returns a copy of the result log in completion order.
func (s *Store) Results() []RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunResult, len(s.results))
	copy(out, s.results)
	return out
}

// Sorted returns a copy of the result log ordered by declaration index.
func (s *Store) Sorted() []RunResult {
	out := s.Results()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Summary counts passed and failed results.
func (s *Store) Summary() (passed, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.Passed() {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
