package ingest

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"
)

// run builds a glyph run at x with the given rendered width.
func run(s string, x, w, fontSize float64) pdf.Text {
	return pdf.Text{S: s, X: x, W: w, FontSize: fontSize}
}

func TestClusterCellsSplitsOnWideGaps(t *testing.T) {
	// Two columns 40pt apart, font size 10: the 40pt gap is a cell break.
	cells := clusterCells([]pdf.Text{
		run("2024-01-01T00:00:00", 10, 90, 10),
		run("5.25", 140, 20, 10),
	})
	require.Equal(t, []string{"2024-01-01T00:00:00", "5.25"}, cells)
}

func TestClusterCellsJoinsAdjacentGlyphRuns(t *testing.T) {
	// Character-level runs: no gap joins directly, a small gap is a space.
	cells := clusterCells([]pdf.Text{
		run("ener", 10, 20, 10),
		run("gy", 30, 10, 10),
		run("output", 43, 30, 10), // 3pt gap at font 10 = word gap
	})
	require.Equal(t, []string{"energy output"}, cells)
}

func TestClusterCellsSortsByX(t *testing.T) {
	cells := clusterCells([]pdf.Text{
		run("right", 200, 25, 10),
		run("left", 10, 20, 10),
	})
	require.Equal(t, []string{"left", "right"}, cells)
}

func TestClusterCellsFontSizeFallback(t *testing.T) {
	cells := clusterCells([]pdf.Text{
		run("a", 10, 5, 0),
		run("b", 40, 5, 0), // 25pt gap with default thresholds = cell break
	})
	require.Equal(t, []string{"a", "b"}, cells)
}

func TestClusterCellsEmptyInput(t *testing.T) {
	require.Nil(t, clusterCells(nil))
}

func TestPDFParserRejectsNonPDF(t *testing.T) {
	_, err := pdfParser{}.parse([]byte("plain text, no pdf header"))
	require.Error(t, err)
}
