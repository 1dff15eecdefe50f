package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/argus-api/argus/internal/failure"
)

// Load reads and parses a suite file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &failure.Error{Kind: failure.KindLoad, Msg: fmt.Sprintf("reading suite %s", path), Err: err}
	}
	return Parse(data, path)
}

// Parse decodes a suite document. The constants table is applied to every
// test once here; executors apply it again per test, which is a no-op unless
// a constant expands to another placeholder.
func Parse(data []byte, source string) (*Suite, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &failure.Error{Kind: failure.KindLoad, Msg: fmt.Sprintf("parsing suite %s", source), Err: err}
	}
	if doc == nil {
		return nil, failure.New(failure.KindLoad, "suite %s is empty", source)
	}

	constants := map[string]any{}
	if raw, ok := doc["constants"]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, failure.New(failure.KindLoad, "suite %s: constants must be a mapping, got %T", source, raw)
		}
		constants = m
	}

	rawTests, ok := doc["tests"]
	if !ok || rawTests == nil {
		return nil, failure.New(failure.KindLoad, "suite %s: no tests found", source)
	}
	tests, ok := rawTests.([]any)
	if !ok {
		return nil, failure.New(failure.KindLoad, "suite %s: tests must be a sequence, got %T", source, rawTests)
	}

	resolved, _ := ResolveConstants(constants, tests).([]any)
	return &Suite{
		Source:    source,
		Constants: constants,
		Tests:     resolved,
	}, nil
}

// Discover returns every .yml/.yaml file directly inside dir, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading suite directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}
