package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/argus-api/argus/internal/failure"
	"github.com/argus-api/argus/internal/store"
)

func sampleSuite() Suite {
	return Suite{
		Source:   "suites/users.yml",
		Duration: 1500 * time.Millisecond,
		Results: []store.RunResult{
			{Name: "list users", Index: 0, Status: store.StatusOK, Execution: 120 * time.Millisecond, Network: 100 * time.Millisecond, NetworkMeasured: true},
			{Name: "bad verb", Index: 1, Status: store.StatusFailed, Error: `invalid HTTP verb: "FETCH"`, Kind: failure.KindVerb, Execution: time.Millisecond},
		},
	}
}

func TestFromStore(t *testing.T) {
	st := store.New()
	st.Append(store.RunResult{Name: "second", Index: 1, Status: store.StatusOK})
	st.Append(store.RunResult{Name: "first", Index: 0, Status: store.StatusFailed})

	unordered := FromStore("a.yml", st, time.Second, false)
	assert.Equal(t, "second", unordered.Results[0].Name)

	ordered := FromStore("a.yml", st, time.Second, true)
	assert.Equal(t, "first", ordered.Results[0].Name)
	assert.True(t, ordered.Failed())
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sampleSuite(), Options{NoColor: true}))

	out := buf.String()
	assert.Contains(t, out, "suites/users.yml")
	assert.Contains(t, out, "list users")
	assert.Contains(t, out, "0.120")
	assert.Contains(t, out, "0.100")
	assert.Contains(t, out, `invalid HTTP verb: "FETCH"`)
	assert.Contains(t, out, "1 passed, 1 failed, 2 total in 1.500s")
	assert.NotContains(t, out, "\x1b[", "no ANSI codes with NoColor")

	// The failed row has no response time.
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "bad verb") {
			assert.Contains(t, line, "-")
		}
	}
}

func TestTable_LoadError(t *testing.T) {
	var buf bytes.Buffer
	s := Suite{Source: "broken.yml", LoadError: "suite broken.yml: no tests found"}
	require.NoError(t, Table(&buf, s, Options{NoColor: true}))
	assert.Contains(t, buf.String(), "load error: suite broken.yml: no tests found")
	assert.True(t, s.Failed())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, []Suite{sampleSuite()}))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "suites/users.yml", got[0]["source"])
	assert.EqualValues(t, 1, got[0]["passed"])
	assert.EqualValues(t, 1, got[0]["failed"])

	results := got[0]["results"].([]any)
	require.Len(t, results, 2)
	ok := results[0].(map[string]any)
	assert.Equal(t, "OK", ok["status"])
	assert.InDelta(t, 0.1, ok["response_seconds"], 1e-9)
	assert.NotContains(t, ok, "kind")

	failed := results[1].(map[string]any)
	assert.Equal(t, "verb", failed["kind"])
	assert.Nil(t, failed["response_seconds"])
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	other := sampleSuite()
	other.Source = "other/users.yaml"
	require.NoError(t, WriteXLSX(path, []Suite{sampleSuite(), other}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"users", "users~2"}, f.GetSheetList())

	name, err := f.GetCellValue("users", "B2")
	require.NoError(t, err)
	assert.Equal(t, "list users", name)

	status, err := f.GetCellValue("users", "C3")
	require.NoError(t, err)
	assert.Equal(t, "Failed", status)

	okStyle, err := f.GetCellStyle("users", "B2")
	require.NoError(t, err)
	failedStyle, err := f.GetCellStyle("users", "B3")
	require.NoError(t, err)
	assert.NotEqual(t, okStyle, failedStyle)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "a_b", sheetName("dir/a:b.yml", used))
	assert.Equal(t, "A_B~2", sheetName("x/A:B.yml", used))

	long := strings.Repeat("x", 40) + ".yml"
	assert.Len(t, sheetName(long, used), maxSheetName)
	assert.Equal(t, "suite", sheetName(".yml", used))
}
