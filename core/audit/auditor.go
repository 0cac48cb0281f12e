package audit

import (
	"fmt"
	"sync"

	"payroll-auditor/core/parser"
)

// Version is the engine version reported by the status endpoint and CLI.
const Version = "1.0.0"

// Run compares two payroll files end to end: parse, normalize, match,
// compare, score. Fatal parse errors abort the run and identify the offending
// file; recoverable per-row issues are collected into the result's warnings.
// The two files are parsed in parallel purely as a throughput optimization;
// output is independent of parse order.
func Run(dataA []byte, formatA parser.Format, dataB []byte, formatB parser.Format, cfg Config) (*Result, error) {
	type parsed struct {
		rows  []parser.Row
		warns []parser.Warning
		err   error
	}
	var sideA, sideB parsed

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sideA.rows, sideA.warns, sideA.err = parser.Parse(dataA, formatA)
	}()
	go func() {
		defer wg.Done()
		sideB.rows, sideB.warns, sideB.err = parser.Parse(dataB, formatB)
	}()
	wg.Wait()

	if sideA.err != nil {
		return nil, fmt.Errorf("file A: %w", sideA.err)
	}
	if sideB.err != nil {
		return nil, fmt.Errorf("file B: %w", sideB.err)
	}

	var warnings []Warning
	warnings = appendParserWarnings(warnings, "a", sideA.warns)
	warnings = appendParserWarnings(warnings, "b", sideB.warns)

	rowsA, warnings := filterConfidence(sideA.rows, "a", cfg.MinExtractionConfidence, warnings)
	rowsB, warnings := filterConfidence(sideB.rows, "b", cfg.MinExtractionConfidence, warnings)

	recordsA, normWarnsA := Normalize(rowsA, cfg)
	warnings = appendStamped(warnings, "a", normWarnsA)
	recordsB, normWarnsB := Normalize(rowsB, cfg)
	warnings = appendStamped(warnings, "b", normWarnsB)

	pairs, unmatchedA, unmatchedB := Match(recordsA, recordsB, cfg)

	discrepancies := Compare(pairs, cfg)
	discrepancies = append(discrepancies, MissingRecordDiscrepancies(unmatchedA, unmatchedB)...)

	summary := Score(discrepancies, pairs, unmatchedA, unmatchedB)

	return &Result{
		MatchedPairs:  pairs,
		UnmatchedA:    unmatchedA,
		UnmatchedB:    unmatchedB,
		Discrepancies: discrepancies,
		Summary:       summary,
		Warnings:      warnings,
	}, nil
}

// filterConfidence excludes rows below the extraction confidence threshold,
// reporting each exclusion as a warning so the auditor can judge completeness.
func filterConfidence(rows []parser.Row, file string, threshold float64, warnings []Warning) ([]parser.Row, []Warning) {
	kept := make([]parser.Row, 0, len(rows))
	for _, row := range rows {
		if row.Confidence < threshold {
			warnings = append(warnings, Warning{
				File:    file,
				Stage:   "extract",
				Row:     row.Index,
				Message: fmt.Sprintf("row extracted with confidence %.2f, below threshold %.2f; excluded from comparison", row.Confidence, threshold),
			})
			continue
		}
		kept = append(kept, row)
	}
	return kept, warnings
}

func appendParserWarnings(warnings []Warning, file string, parserWarns []parser.Warning) []Warning {
	for _, w := range parserWarns {
		warnings = append(warnings, Warning{
			File:    file,
			Stage:   "parse",
			Row:     w.Row,
			Message: w.Message,
		})
	}
	return warnings
}

func appendStamped(warnings []Warning, file string, more []Warning) []Warning {
	for _, w := range more {
		w.File = file
		warnings = append(warnings, w)
	}
	return warnings
}
