// Package parser extracts raw payroll rows from uploaded file bytes.
//
// It supports a closed set of declared formats (spreadsheet, delimited,
// structured, document), each producing the same output: a sequence of raw
// row mappings from observed column name to cell value. Parsers perform no
// normalization; column names and values are passed through as found so the
// audit engine can resolve synonyms and coerce types with full context.
//
// # Contract
//
//	rows, warnings, err := parser.Parse(data, parser.FormatDelimited)
//
// An unrecognized format tag yields ErrUnsupportedFormat. Malformed content
// that prevents extracting any usable rows yields a *ParseError carrying the
// offending row or line number when known. Recoverable per-row issues are
// returned as warnings, never as errors.
//
// Parsers are pure functions over their input bytes: no I/O, no shared state.
package parser
