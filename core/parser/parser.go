package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Format identifies the declared input format of an uploaded file.
type Format string

const (
	// FormatSpreadsheet is an Excel workbook (.xlsx, .xls).
	FormatSpreadsheet Format = "spreadsheet"
	// FormatDelimited is header-driven delimited text (.csv).
	FormatDelimited Format = "delimited"
	// FormatStructured is a structured-object export (.json).
	FormatStructured Format = "structured"
	// FormatDocument is page-layout document text (.pdf).
	FormatDocument Format = "document"
)

// ErrUnsupportedFormat is returned when the declared format tag is not part
// of the recognized set.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseError reports malformed content that prevented extracting usable rows.
type ParseError struct {
	// Format is the declared format of the offending file.
	Format Format
	// Row is the 1-based row or line number, 0 when unknown.
	Row int
	// Cause is a human-readable description of what was wrong.
	Cause string
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parse %s: row %d: %s", e.Format, e.Row, e.Cause)
	}
	return fmt.Sprintf("parse %s: %s", e.Format, e.Cause)
}

// Row is one raw record extracted from a source file.
type Row struct {
	// Index is the 1-based row or line number in the source.
	Index int `json:"index"`

	// Fields maps observed column names to cell values. Values are either
	// string or json.Number; typing is deferred to the normalizer.
	Fields map[string]any `json:"fields"`

	// Confidence is the extraction confidence in [0,1]. It is 1.0 for all
	// formats except document, where rows are reconstructed heuristically.
	Confidence float64 `json:"confidence"`
}

// Warning reports a recoverable per-row extraction issue.
type Warning struct {
	// Row is the 1-based source row, 0 when the warning is file-level.
	Row int `json:"row"`
	// Message describes the issue.
	Message string `json:"message"`
}

// ParseFormat converts a format tag string into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatSpreadsheet:
		return FormatSpreadsheet, nil
	case FormatDelimited:
		return FormatDelimited, nil
	case FormatStructured:
		return FormatStructured, nil
	case FormatDocument:
		return FormatDocument, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatForExtension maps a file extension (with or without the leading dot)
// to its declared format. The accepted set matches the upload layer:
// .xlsx, .xls, .pdf, .csv, .json.
func FormatForExtension(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "xlsx", "xls":
		return FormatSpreadsheet, true
	case "csv":
		return FormatDelimited, true
	case "json":
		return FormatStructured, true
	case "pdf":
		return FormatDocument, true
	default:
		return "", false
	}
}

// Formats returns the recognized format tags.
func Formats() []string {
	return []string{
		string(FormatSpreadsheet),
		string(FormatDelimited),
		string(FormatStructured),
		string(FormatDocument),
	}
}

// Parse extracts raw rows from data according to the declared format.
// It returns the extracted rows, any recoverable warnings, and a fatal error
// when no usable rows could be extracted.
func Parse(data []byte, format Format) ([]Row, []Warning, error) {
	switch format {
	case FormatSpreadsheet:
		return parseSpreadsheet(data)
	case FormatDelimited:
		return parseDelimited(data)
	case FormatStructured:
		return parseStructured(data)
	case FormatDocument:
		return parseDocument(data)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
