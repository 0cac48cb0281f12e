package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseSpreadsheet extracts rows from an Excel workbook. The first non-empty
// row of the first sheet is the header; subsequent rows map header cell to
// cell value. Blank rows are skipped. Merged or duplicated headers are not
// supported and abort the parse.
func parseSpreadsheet(data []byte) ([]Row, []Warning, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, &ParseError{Format: FormatSpreadsheet, Cause: fmt.Sprintf("unable to open workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &ParseError{Format: FormatSpreadsheet, Cause: "workbook contains no sheets"}
	}

	// Only the first sheet is read; payroll exports are single-sheet.
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, &ParseError{Format: FormatSpreadsheet, Cause: fmt.Sprintf("unable to read sheet %q: %v", sheets[0], err)}
	}

	var (
		header    []string
		headerRow int
	)
	for i, row := range cells {
		if rowBlank(row) {
			continue
		}
		header = row
		headerRow = i + 1
		break
	}
	if header == nil {
		return nil, nil, &ParseError{Format: FormatSpreadsheet, Cause: "no header row found"}
	}
	if err := checkHeader(header); err != nil {
		return nil, nil, &ParseError{Format: FormatSpreadsheet, Row: headerRow, Cause: err.Error()}
	}

	var (
		rows     []Row
		warnings []Warning
	)
	for i := headerRow; i < len(cells); i++ {
		row := cells[i]
		if rowBlank(row) {
			continue
		}
		fields := make(map[string]any, len(header))
		for j, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if j < len(row) {
				fields[name] = row[j]
			}
		}
		rows = append(rows, Row{Index: i + 1, Fields: fields, Confidence: 1.0})
	}

	return rows, warnings, nil
}

// checkHeader rejects duplicated or empty headers, which indicate merged or
// multi-row header layouts this parser does not support.
func checkHeader(header []string) error {
	seen := make(map[string]struct{}, len(header))
	nonEmpty := 0
	for _, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		nonEmpty++
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate header column %q (merged or multi-row headers are unsupported)", name)
		}
		seen[name] = struct{}{}
	}
	if nonEmpty == 0 {
		return fmt.Errorf("header row contains no column names")
	}
	return nil
}

func rowBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
