package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// parseDelimited extracts rows from header-driven delimited text. Quoted
// fields containing the delimiter are handled by the reader; records shorter
// than the header simply omit the trailing columns.
func parseDelimited(data []byte) ([]Row, []Warning, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		header   []string
		rows     []Row
		warnings []Warning
		line     int
	)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, nil, &ParseError{Format: FormatDelimited, Row: csvErr.Line, Cause: csvErr.Err.Error()}
			}
			return nil, nil, &ParseError{Format: FormatDelimited, Cause: err.Error()}
		}
		line++

		if recordBlank(record) {
			continue
		}
		if header == nil {
			header = record
			if err := checkHeader(header); err != nil {
				return nil, nil, &ParseError{Format: FormatDelimited, Row: line, Cause: err.Error()}
			}
			continue
		}

		if len(record) > len(header) {
			warnings = append(warnings, Warning{
				Row:     line,
				Message: fmt.Sprintf("record has %d fields but header has %d; extra fields ignored", len(record), len(header)),
			})
		}
		fields := make(map[string]any, len(header))
		for j, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if j < len(record) {
				fields[name] = record[j]
			}
		}
		rows = append(rows, Row{Index: line, Fields: fields, Confidence: 1.0})
	}

	if header == nil {
		return nil, nil, &ParseError{Format: FormatDelimited, Cause: "no header row found"}
	}
	return rows, warnings, nil
}

func recordBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
