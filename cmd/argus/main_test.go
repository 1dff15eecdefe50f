package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-api/argus/internal/fakeapi"
)

const passingSuite = `
constants:
  base: %BASE%
tests:
  - name: list users
    request: {method: GET, endpoint: "{{base}}/users"}
    expected:
      status: 200
      response:
        type: json
        json:
          - key: "0.name"
            equal: alice
  - name: first user
    request:
      method: GET
      endpoint: "{{base}}/search"
      params:
        user_id: {response_from: {name: list users, key: "0.id"}}
    expected:
      status: 200
      response:
        type: json
        json:
          - key: results
            not_empty: true
`

const failingSuite = `
constants:
  base: %BASE%
tests:
  - name: missing
    request: {method: GET, endpoint: "{{base}}/users/404"}
    expected: {status: 200}
`

// workspace creates a temp working directory holding the given suites with
// %BASE% replaced by a running fake API.
func workspace(t *testing.T, suites map[string]string) string {
	t.Helper()
	_, srv := fakeapi.Start()
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	for name, body := range suites {
		body = strings.ReplaceAll(body, "%BASE%", srv.URL)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	chdir(t, dir)
	return dir
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_DiscoversAndPasses(t *testing.T) {
	workspace(t, map[string]string{"users.yml": passingSuite, "notes.txt": "ignored"})

	code, out, errOut := runCLI("--no-color")
	assert.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "users.yml")
	assert.Contains(t, out, "list users")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestRun_FailureSetsExitCode(t *testing.T) {
	workspace(t, map[string]string{"a.yml": passingSuite, "b.yaml": failingSuite})

	code, out, _ := runCLI("--no-color", "--ordered")
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
	assert.Less(t, strings.Index(out, "a.yml"), strings.Index(out, "b.yaml"), "suites run in sorted order")
}

func TestRun_LoadErrorDoesNotStopOtherSuites(t *testing.T) {
	workspace(t, map[string]string{"good.yml": passingSuite, "bad.yml": "tests: 5\n"})

	code, out, _ := runCLI("--no-color", "bad.yml", "good.yml")
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, out, "load error:")
	assert.Contains(t, out, "2 passed, 0 failed")
}

func TestRun_NoSuites(t *testing.T) {
	workspace(t, nil)

	code, _, errOut := runCLI("--no-color")
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, errOut, "no test suites found")
}

func TestRun_MissingExplicitPath(t *testing.T) {
	workspace(t, map[string]string{"users.yml": passingSuite})

	code, out, errOut := runCLI("users.yml", "nope.yml")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "nope.yml")
	assert.Empty(t, out, "nothing runs when a path is missing")
}

func TestRun_JSONAndSpreadsheet(t *testing.T) {
	dir := workspace(t, map[string]string{"users.yml": passingSuite})
	xlsx := filepath.Join(dir, "out", "report.xlsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(xlsx), 0o755))

	code, out, errOut := runCLI("--format", "json", "--xlsx", xlsx, "users.yml")
	require.Equal(t, exitOK, code, errOut)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.EqualValues(t, 2, got[0]["passed"])

	_, err := os.Stat(xlsx)
	assert.NoError(t, err)
}

func TestRun_ReportWriteFailure(t *testing.T) {
	dir := workspace(t, map[string]string{"users.yml": passingSuite})
	xlsx := filepath.Join(dir, "missing", "report.xlsx")

	code, _, errOut := runCLI("--no-color", "--xlsx", xlsx, "users.yml")
	assert.Equal(t, exitFailed, code, "a report I/O error is not a usage error")
	assert.Contains(t, errOut, "writing spreadsheet report")
}

func TestRun_ConfigFileAndValidation(t *testing.T) {
	dir := workspace(t, map[string]string{"users.yml": passingSuite})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "argus.yaml"), []byte("format: json\nno_color: true\n"), 0o644))

	code, out, _ := runCLI()
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "["), "argus.yaml should switch output to JSON")

	code, _, errOut := runCLI("--workers", "0")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "workers")
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI("version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "argus dev\n", out)
}
