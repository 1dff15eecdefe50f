package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	failedFill   = "FF5900"
	maxSheetName = 31
	columnWidth  = 18
)

var xlsxHeaders = []string{"#", "Name", "Result", "Kind", "Error", "Execution Time (s)", "Response Time (s)"}

// WriteXLSX saves one worksheet per suite to path. Rows of failed tests are
// filled orange.
func WriteXLSX(path string, suites []Suite) error {
	f := excelize.NewFile()
	defer f.Close()

	failedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{failedFill}},
	})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	used := map[string]bool{}
	for i, s := range suites {
		name := sheetName(s.Source, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, s, headerStyle, failedStyle); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, s Suite, headerStyle, failedStyle int) error {
	lastCol, _ := excelize.ColumnNumberToName(len(xlsxHeaders))
	if err := f.SetColWidth(sheet, "A", lastCol, columnWidth); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(xlsxHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", endHeader, headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	if s.LoadError != "" {
		return f.SetCellValue(sheet, "A2", "load error: "+s.LoadError)
	}

	for i, r := range s.Results {
		row := i + 2
		kind := ""
		if !r.Passed() {
			kind = r.Kind.String()
		}
		values := []any{r.Index + 1, r.Name, string(r.Status), kind, r.Error, r.Execution.Seconds(), nil}
		if r.NetworkMeasured {
			values[6] = r.Network.Seconds()
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
		if !r.Passed() {
			end, _ := excelize.CoordinatesToCellName(len(xlsxHeaders), row)
			if err := f.SetCellStyle(sheet, start, end, failedStyle); err != nil {
				return fmt.Errorf("styling row %d: %w", row, err)
			}
		}
	}

	passed, failed := s.Counts()
	summary, _ := excelize.CoordinatesToCellName(1, len(s.Results)+3)
	return f.SetCellValue(sheet, summary, fmt.Sprintf("%d passed, %d failed, %d total", passed, failed, passed+failed))
}

// sheetName derives a unique worksheet name from a suite path. Excel limits
// names to 31 characters and forbids a few punctuation marks.
func sheetName(source string, used map[string]bool) string {
	base := source
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
	base = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = "suite"
	}

	name := truncate(base, maxSheetName)
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
