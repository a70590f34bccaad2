package ingest

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/pvforge/helios/pkg/errors"
)

// rowSet is the format-independent table every parser produces: a normalized
// lower-case header plus raw string cells.
type rowSet struct {
	header []string
	rows   [][]string
}

// tableParser converts one upload format into a rowSet.
type tableParser interface {
	parse(data []byte) (rowSet, error)
}

// parserFor dispatches on the lower-cased file extension.
func parserFor(ext string) (tableParser, bool) {
	switch ext {
	case ".csv":
		return csvParser{}, true
	case ".xlsx", ".xls":
		return xlsxParser{}, true
	case ".pdf":
		return pdfParser{}, true
	default:
		return nil, false
	}
}

// normalizeHeader trims and lower-cases header cells.
func normalizeHeader(cells []string) []string {
	header := make([]string, len(cells))
	for i, c := range cells {
		header[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return header
}

// newRowSet assembles a rowSet from raw rows, dropping rows whose cells are
// all empty.
func newRowSet(raw [][]string) (rowSet, error) {
	if len(raw) == 0 {
		return rowSet{}, apperrors.Wrap(apperrors.CodeEmptyTable, "file contains no rows", nil)
	}
	rs := rowSet{header: normalizeHeader(raw[0])}
	for _, row := range raw[1:] {
		if rowEmpty(row) {
			continue
		}
		rs.rows = append(rs.rows, row)
	}
	if len(rs.rows) == 0 {
		return rowSet{}, apperrors.Wrap(apperrors.CodeEmptyTable, "file contains a header but no data rows", nil)
	}
	return rs, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// columnIndex finds a header column, or -1.
func (rs rowSet) columnIndex(name string) int {
	for i, h := range rs.header {
		if h == name {
			return i
		}
	}
	return -1
}

// cell reads a cell tolerating short rows.
func (rs rowSet) cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

type csvParser struct{}

func (csvParser) parse(data []byte) (rowSet, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	raw, err := reader.ReadAll()
	if err != nil {
		return rowSet{}, apperrors.Wrap(apperrors.CodeNoTableFound, "unreadable CSV content", err)
	}
	return newRowSet(raw)
}

type xlsxParser struct{}

func (xlsxParser) parse(data []byte) (rowSet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return rowSet{}, apperrors.Wrap(apperrors.CodeNoTableFound, "unreadable XLSX content", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return rowSet{}, apperrors.Wrap(apperrors.CodeNoTableFound, "workbook has no sheets", nil)
	}
	raw, err := f.GetRows(sheet)
	if err != nil {
		return rowSet{}, apperrors.Wrap(apperrors.CodeNoTableFound, "unreadable worksheet", err)
	}
	return newRowSet(raw)
}
