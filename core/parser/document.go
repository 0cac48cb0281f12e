package parser

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document extraction reconstructs tabular text from positioned page content.
// Column boundaries are inferred from the header line's horizontal positions
// and every reconstructed row carries a confidence score so downstream
// consumers can tell clean table extraction from heuristic guesswork.

const (
	// lineYTolerance groups text fragments whose baselines differ by less
	// than this many points into the same line.
	lineYTolerance = 2.0

	// columnSlack is how far left of a column boundary a fragment may start
	// and still belong to that column.
	columnSlack = 2.0

	// alignTolerance is the maximum distance from a column boundary for a
	// cell to count as aligned when scoring confidence.
	alignTolerance = 4.0
)

// textItem is one positioned fragment of page text.
type textItem struct {
	page     int
	x, y, w  float64
	fontSize float64
	s        string
}

func parseDocument(data []byte) (rows []Row, warnings []Warning, err error) {
	// The underlying reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			rows, warnings = nil, nil
			err = &ParseError{Format: FormatDocument, Cause: fmt.Sprintf("malformed document: %v", r)}
		}
	}()

	reader, rerr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if rerr != nil {
		return nil, nil, &ParseError{Format: FormatDocument, Cause: fmt.Sprintf("unable to open document: %v", rerr)}
	}

	var items []textItem
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		p := reader.Page(pageNum)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			items = append(items, textItem{
				page:     pageNum,
				x:        t.X,
				y:        t.Y,
				w:        t.W,
				fontSize: t.FontSize,
				s:        t.S,
			})
		}
	}
	if len(items) == 0 {
		return nil, nil, &ParseError{Format: FormatDocument, Cause: "document contains no extractable text"}
	}

	lines := groupLines(items)
	return tableFromLines(lines)
}

// groupLines orders fragments in reading order and merges fragments that sit
// on the same baseline into lines, joining fragments separated by less than a
// word gap into single cells.
func groupLines(items []textItem) [][]textItem {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.page != b.page {
			return a.page < b.page
		}
		if math.Abs(a.y-b.y) > lineYTolerance {
			return a.y > b.y // PDF y grows upward
		}
		return a.x < b.x
	})

	var lines [][]textItem
	var current []textItem
	for _, it := range items {
		if len(current) > 0 {
			last := current[len(current)-1]
			sameLine := it.page == last.page && math.Abs(it.y-last.y) <= lineYTolerance
			if !sameLine {
				lines = append(lines, mergeCells(current))
				current = nil
			}
		}
		current = append(current, it)
	}
	if len(current) > 0 {
		lines = append(lines, mergeCells(current))
	}
	return lines
}

// mergeCells joins horizontally adjacent fragments of one line into cells.
// Fragments closer than roughly a word space belong to the same cell; larger
// gaps are treated as column separation.
func mergeCells(line []textItem) []textItem {
	var cells []textItem
	for _, it := range line {
		if len(cells) > 0 {
			prev := &cells[len(cells)-1]
			gap := it.x - (prev.x + prev.w)
			if gap <= wordGap(prev.fontSize) {
				if gap > 0.5 {
					prev.s += " "
				}
				prev.s += it.s
				prev.w = it.x + it.w - prev.x
				continue
			}
		}
		cells = append(cells, it)
	}
	return cells
}

func wordGap(fontSize float64) float64 {
	if fontSize <= 0 {
		return 5.0
	}
	return fontSize * 0.6
}

// tableFromLines treats the first line with at least two cells as the header
// and assigns every later cell to the nearest header column.
func tableFromLines(lines [][]textItem) ([]Row, []Warning, error) {
	headerIdx := -1
	for i, line := range lines {
		if len(line) >= 2 {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, nil, &ParseError{Format: FormatDocument, Cause: "no tabular content found"}
	}

	headerLine := lines[headerIdx]
	columns := make([]float64, len(headerLine))
	names := make([]string, len(headerLine))
	for i, cell := range headerLine {
		columns[i] = cell.x
		names[i] = strings.TrimSpace(cell.s)
	}
	if err := checkHeader(names); err != nil {
		return nil, nil, &ParseError{Format: FormatDocument, Row: headerIdx + 1, Cause: err.Error()}
	}

	var (
		rows     []Row
		warnings []Warning
	)
	for i := headerIdx + 1; i < len(lines); i++ {
		line := lines[i]
		fields, confidence := assignColumns(line, columns, names)
		if len(fields) == 0 {
			warnings = append(warnings, Warning{
				Row:     i + 1,
				Message: "line could not be aligned to any table column",
			})
			continue
		}
		rows = append(rows, Row{Index: i + 1, Fields: fields, Confidence: confidence})
	}
	if len(rows) == 0 {
		return nil, nil, &ParseError{Format: FormatDocument, Cause: "table header found but no data rows could be reconstructed"}
	}

	return rows, warnings, nil
}

// assignColumns buckets the line's cells into the header columns and scores
// how confidently the line fit the table layout. The score blends how many
// cells started on a column boundary with how many columns were filled.
func assignColumns(line []textItem, columns []float64, names []string) (map[string]any, float64) {
	fields := make(map[string]any, len(columns))
	aligned := 0
	filled := make(map[int]struct{}, len(columns))

	for _, cell := range line {
		col := columnFor(cell.x, columns)
		if col < 0 {
			continue
		}
		text := strings.TrimSpace(cell.s)
		if text == "" {
			continue
		}
		name := names[col]
		if existing, ok := fields[name].(string); ok && existing != "" {
			fields[name] = existing + " " + text
		} else {
			fields[name] = text
		}
		filled[col] = struct{}{}
		if math.Abs(cell.x-columns[col]) <= alignTolerance {
			aligned++
		}
	}
	if len(fields) == 0 {
		return nil, 0
	}

	alignedRatio := float64(aligned) / float64(len(line))
	coverage := float64(len(filled)) / float64(len(columns))
	return fields, 0.6*alignedRatio + 0.4*coverage
}

// columnFor returns the index of the rightmost column starting at or left of
// x (allowing a small slack), or -1 when x precedes the first column.
func columnFor(x float64, columns []float64) int {
	col := -1
	for i, start := range columns {
		if start <= x+columnSlack {
			col = i
		}
	}
	return col
}
