package ingest

import (
	"bytes"
	"sort"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/pvforge/helios/pkg/errors"
)

// PDF tables are reconstructed from positioned text: glyph runs on one
// visual line cluster into cells by horizontal gaps, contiguous lines with
// at least two cells form a candidate table, and the single largest
// candidate across all pages (by row count) is the one ingested.
const (
	// Gaps wider than one em of the current font start a new cell; gaps
	// wider than a fifth of an em separate words inside a cell.
	cellGapEm = 1.0
	wordGapEm = 0.2

	// Fallbacks for glyph runs that carry no font size.
	defaultCellGap = 8.0
	defaultWordGap = 1.5
)

type pdfParser struct{}

func (pdfParser) parse(data []byte) (rowSet, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return rowSet{}, apperrors.Wrap(apperrors.CodeNoTableFound, "unreadable PDF content", err)
	}

	var candidates [][][]string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines := make([][]string, 0, len(rows))
		for _, row := range rows {
			if cells := clusterCells(row.Content); len(cells) > 0 {
				lines = append(lines, cells)
			}
		}
		candidates = append(candidates, tablesIn(lines)...)
	}

	best := largestTable(candidates)
	if best == nil {
		return rowSet{}, apperrors.Wrap(apperrors.CodeNoTableFound, "no table found in PDF", nil)
	}
	return newRowSet(best)
}

// clusterCells folds one line of glyph runs into cell strings.
func clusterCells(texts []pdf.Text) []string {
	if len(texts) == 0 {
		return nil
	}
	sorted := append([]pdf.Text(nil), texts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var cells []string
	var current bytes.Buffer
	prevEnd := sorted[0].X

	flush := func() {
		if current.Len() > 0 {
			cells = append(cells, current.String())
			current.Reset()
		}
	}

	for i, t := range sorted {
		cellGap, wordGap := gapThresholds(t.FontSize)
		gap := t.X - prevEnd
		switch {
		case i == 0:
		case gap > cellGap:
			flush()
		case gap > wordGap:
			current.WriteByte(' ')
		}
		current.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	flush()
	return cells
}

func gapThresholds(fontSize float64) (cell, word float64) {
	if fontSize <= 0 {
		return defaultCellGap, defaultWordGap
	}
	return fontSize * cellGapEm, fontSize * wordGapEm
}

// tablesIn segments page lines into candidate tables: maximal runs of
// consecutive lines with two or more cells.
func tablesIn(lines [][]string) [][][]string {
	var tables [][][]string
	var run [][]string
	for _, line := range lines {
		if len(line) >= 2 {
			run = append(run, line)
			continue
		}
		if len(run) > 0 {
			tables = append(tables, run)
			run = nil
		}
	}
	if len(run) > 0 {
		tables = append(tables, run)
	}
	return tables
}

// largestTable picks the candidate with the most rows, earlier pages winning
// ties.
func largestTable(tables [][][]string) [][]string {
	var best [][]string
	for _, t := range tables {
		if len(t) > len(best) {
			best = t
		}
	}
	return best
}
