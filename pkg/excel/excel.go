// Package excel reads and writes the single-sheet spreadsheets used for catalogue import/export.
package excel

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const maxRows = 5000

var (
	// ErrNoData indicates the sheet has a header but no data rows.
	ErrNoData = errors.New("spreadsheet has no data rows (first row is the header)")
	// ErrTooManyRows indicates the sheet exceeds the import limit.
	ErrTooManyRows = fmt.Errorf("spreadsheet exceeds %d data rows", maxRows)
)

// MissingColumnsError lists required header columns that were not found.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "spreadsheet header is missing columns: " + strings.Join(e.Columns, ", ")
}

// Row is one data row keyed by header column. Number is the 1-based sheet row, so the first data
// row is row 2.
type Row struct {
	Number int
	values map[string]string
}

// Get returns the trimmed cell under the column, or "" when absent.
func (r Row) Get(column string) string {
	return r.values[normalizeHeader(column)]
}

// ReadRows parses the first sheet. Column order is free; headers match case-insensitively.
// Blank rows are skipped.
func ReadRows(reader io.Reader, required []string) ([]Row, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("unable to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	sheetRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %w", err)
	}
	if len(sheetRows) < 2 {
		return nil, ErrNoData
	}

	header := make([]string, len(sheetRows[0]))
	present := make(map[string]bool, len(header))
	for i, h := range sheetRows[0] {
		header[i] = normalizeHeader(h)
		present[header[i]] = true
	}
	var missing []string
	for _, column := range required {
		if !present[normalizeHeader(column)] {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var rows []Row
	for i := 1; i < len(sheetRows); i++ {
		row := Row{Number: i + 1, values: make(map[string]string, len(header))}
		blank := true
		for idx, cell := range sheetRows[i] {
			if idx >= len(header) || header[idx] == "" {
				continue
			}
			value := strings.TrimSpace(cell)
			if value != "" {
				blank = false
			}
			row.values[header[idx]] = value
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrNoData
	}
	if len(rows) > maxRows {
		return nil, ErrTooManyRows
	}
	return rows, nil
}

// Write renders a sheet with a styled header row followed by rows.
func Write(sheetName string, columns []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if sheetName != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, column := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, column); err != nil {
			return nil, err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, name, name, float64(maxInt(len(column)+4, 16)))
	}
	if len(columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, headerStyle)
	}

	for r, values := range rows {
		for c, value := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
