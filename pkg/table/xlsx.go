package table

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name used for new workbooks.
const DefaultSheet = "Sheet1"

// XLSX stores a table in the active sheet of an Excel workbook.
type XLSX struct {
	path  string
	sheet string
}

// NewXLSX returns a store for the workbook at path. New workbooks get a sheet
// named sheet (DefaultSheet when empty).
func NewXLSX(path, sheet string) *XLSX {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &XLSX{path: path, sheet: sheet}
}

// Path returns the workbook location.
func (x *XLSX) Path() string {
	return x.path
}

// Load reads the active sheet. The first row is the header.
func (x *XLSX) Load() (*Table, error) {
	if _, err := os.Stat(x.path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}

	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", x.path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	t := &Table{}
	if len(rows) == 0 {
		return t, nil
	}
	t.Header = rows[0]
	t.Rows = rows[1:]
	return t, nil
}

// Save rewrites the workbook with t. Integer-looking cells are stored as
// numbers so the sheet stays sortable in a spreadsheet application.
func (x *XLSX) Save(t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if x.sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, x.sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	all := append([][]string{t.Header}, t.Rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = cellValue(v, i == 0)
		}
		if err := f.SetSheetRow(x.sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", x.path, err)
	}
	if err := f.SaveAs(x.path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", x.path, err)
	}
	return nil
}

func cellValue(s string, header bool) interface{} {
	if header {
		return s
	}
	if n, err := strconv.Atoi(s); err == nil && strconv.Itoa(n) == s {
		return n
	}
	return s
}
