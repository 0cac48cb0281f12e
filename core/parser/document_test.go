package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(x, y float64, s string) textItem {
	return textItem{page: 1, x: x, y: y, w: float64(len(s)) * 5, fontSize: 10, s: s}
}

func TestGroupLines_OrdersAndSplitsByBaseline(t *testing.T) {
	// Deliberately shuffled input; y grows upward in page coordinates.
	items := []textItem{
		item(100, 680, "5000.00"),
		item(10, 700, "Employee"),
		item(200, 700, "Net"),
		item(10, 680, "John"),
		item(100, 700, "Gross"),
		item(200, 680.5, "4000.00"), // within the baseline tolerance
	}

	lines := groupLines(items)
	require.Len(t, lines, 2)

	require.Len(t, lines[0], 3)
	assert.Equal(t, "Employee", lines[0][0].s)
	assert.Equal(t, "Gross", lines[0][1].s)
	assert.Equal(t, "Net", lines[0][2].s)

	require.Len(t, lines[1], 3)
	assert.Equal(t, "John", lines[1][0].s)
	assert.Equal(t, "4000.00", lines[1][2].s)
}

func TestMergeCells_JoinsAdjacentFragments(t *testing.T) {
	// "John" ends at x=30; "Smith" starts at 32, within a word gap.
	// "5000.00" starts far right and stays its own cell.
	line := []textItem{
		item(10, 680, "John"),
		item(32, 680, "Smith"),
		item(100, 680, "5000.00"),
	}

	cells := mergeCells(line)
	require.Len(t, cells, 2)
	assert.Equal(t, "John Smith", cells[0].s)
	assert.Equal(t, "5000.00", cells[1].s)
}

func TestColumnFor(t *testing.T) {
	columns := []float64{10, 100, 200}

	tests := []struct {
		x        float64
		expected int
	}{
		{5, -1},
		{10, 0},
		{50, 0},
		{99, 1}, // within slack of column 1
		{150, 1},
		{250, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, columnFor(tt.x, columns), "x=%v", tt.x)
	}
}

func TestAssignColumns_Confidence(t *testing.T) {
	columns := []float64{10, 100, 200}
	names := []string{"employee", "gross", "net"}

	// Perfectly aligned, every column filled.
	full := []textItem{
		item(10, 680, "John Smith"),
		item(100, 680, "5000.00"),
		item(200, 680, "4000.00"),
	}
	fields, confidence := assignColumns(full, columns, names)
	require.Len(t, fields, 3)
	assert.Equal(t, "5000.00", fields["gross"])
	assert.InDelta(t, 1.0, confidence, 1e-9)

	// One cell drifted off its boundary, one column empty.
	partial := []textItem{
		item(10, 660, "Jane Doe"),
		item(205, 660, "4100.00"), // 5 points off the net column
	}
	fields, confidence = assignColumns(partial, columns, names)
	require.Len(t, fields, 2)
	assert.Equal(t, "4100.00", fields["net"])
	assert.InDelta(t, 0.6*0.5+0.4*(2.0/3.0), confidence, 1e-9)
}

func TestTableFromLines_ReconstructsRows(t *testing.T) {
	lines := [][]textItem{
		{item(50, 720, "ACME Payroll Report")}, // single-cell title, skipped
		{item(10, 700, "employee"), item(100, 700, "gross"), item(200, 700, "net")},
		{item(10, 680, "John Smith"), item(100, 680, "5000.00"), item(200, 680, "4000.00")},
		{item(10, 660, "Jane Doe"), item(100, 660, "6200.50"), item(200, 660, "4800.25")},
	}

	rows, warnings, err := tableFromLines(lines)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, rows, 2)

	assert.Equal(t, "John Smith", rows[0].Fields["employee"])
	assert.Equal(t, "6200.50", rows[1].Fields["gross"])
	assert.InDelta(t, 1.0, rows[0].Confidence, 1e-9)
}

func TestTableFromLines_NoTable(t *testing.T) {
	lines := [][]textItem{
		{item(50, 720, "just a paragraph of prose")},
	}

	_, _, err := tableFromLines(lines)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Cause, "no tabular content")
}

func TestParseDocument_NotADocument(t *testing.T) {
	_, _, err := Parse([]byte("plain text, no document structure"), FormatDocument)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, FormatDocument, parseErr.Format)
}
