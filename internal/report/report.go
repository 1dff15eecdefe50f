// Package report renders run results: a colored terminal table, a JSON
// document, and an optional spreadsheet.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/argus-api/argus/internal/store"
)

// Suite is the outcome of one suite file.
type Suite struct {
	Source   string
	Results  []store.RunResult
	Duration time.Duration
	// LoadError is set when the suite never ran.
	LoadError string
}

// FromStore builds a Suite from a finished run. Ordered sorts the results by
// declaration index; otherwise they keep completion order.
func FromStore(source string, st *store.Store, d time.Duration, ordered bool) Suite {
	results := st.Results()
	if ordered {
		results = st.Sorted()
	}
	return Suite{Source: source, Results: results, Duration: d}
}

// Counts returns the passed and failed totals.
func (s Suite) Counts() (passed, failed int) {
	for _, r := range s.Results {
		if r.Passed() {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// Failed reports whether the suite failed to load or any test failed.
func (s Suite) Failed() bool {
	_, failed := s.Counts()
	return s.LoadError != "" || failed > 0
}

// Options controls terminal output.
type Options struct {
	NoColor bool
}

// Table writes one suite as a table followed by a summary line.
func Table(w io.Writer, s Suite, opts Options) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)
	if opts.NoColor {
		green.DisableColor()
		red.DisableColor()
		bold.DisableColor()
	}

	fmt.Fprintln(w, bold.Sprint(s.Source))
	if s.LoadError != "" {
		fmt.Fprintf(w, "%s %s\n\n", red.Sprint("load error:"), s.LoadError)
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Name", "Result", "Error", "Execution Time (s)", "Response Time (s)")
	for _, r := range s.Results {
		result := green.Sprint(string(r.Status))
		if !r.Passed() {
			result = red.Sprint(string(r.Status))
		}
		if err := table.Append([]string{r.Name, result, r.Error, seconds(r.Execution), responseTime(r)}); err != nil {
			return fmt.Errorf("appending row for %s: %w", r.Name, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	passed, failed := s.Counts()
	summary := fmt.Sprintf("%d passed, %d failed, %d total in %ss", passed, failed, passed+failed, seconds(s.Duration))
	if failed > 0 {
		summary = red.Sprint(summary)
	} else {
		summary = green.Sprint(summary)
	}
	fmt.Fprintf(w, "%s\n\n", summary)
	return nil
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func responseTime(r store.RunResult) string {
	if !r.NetworkMeasured {
		return "-"
	}
	return seconds(r.Network)
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

type jsonResult struct {
	Name      string   `json:"name"`
	Index     int      `json:"index"`
	Status    string   `json:"status"`
	Error     string   `json:"error,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Execution float64  `json:"execution_seconds"`
	Response  *float64 `json:"response_seconds"`
}

type jsonSuite struct {
	Source    string       `json:"source"`
	LoadError string       `json:"load_error,omitempty"`
	Passed    int          `json:"passed"`
	Failed    int          `json:"failed"`
	Duration  float64      `json:"duration_seconds"`
	Results   []jsonResult `json:"results"`
}

// JSON writes every suite as one indented JSON array.
func JSON(w io.Writer, suites []Suite) error {
	out := make([]jsonSuite, 0, len(suites))
	for _, s := range suites {
		passed, failed := s.Counts()
		js := jsonSuite{
			Source:    s.Source,
			LoadError: s.LoadError,
			Passed:    passed,
			Failed:    failed,
			Duration:  s.Duration.Seconds(),
			Results:   make([]jsonResult, 0, len(s.Results)),
		}
		for _, r := range s.Results {
			jr := jsonResult{
				Name:      r.Name,
				Index:     r.Index,
				Status:    string(r.Status),
				Error:     r.Error,
				Execution: r.Execution.Seconds(),
			}
			if !r.Passed() {
				jr.Kind = r.Kind.String()
			}
			if r.NetworkMeasured {
				sec := r.Network.Seconds()
				jr.Response = &sec
			}
			js.Results = append(js.Results, jr)
		}
		out = append(out, js)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
