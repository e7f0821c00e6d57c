package db

import (
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// XLSXFile is the workbook name inside the run directory.
const XLSXFile = "results.xlsx"

// XLSX writes all tables into one workbook, a sheet per table. Numeric cells
// are stored as numbers.
type XLSX struct{}

func (XLSX) Name() string { return "xlsx" }

func (XLSX) Save(dir string, tables []Table) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	for _, t := range tables {
		if _, err := f.NewSheet(t.Name); err != nil {
			return err
		}
		header := t.Header
		if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
			return err
		}
		for i, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			values := cellValues(row)
			if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
				return err
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.SaveAs(filepath.Join(dir, XLSXFile))
}

func cellValues(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[i] = n
			continue
		}
		out[i] = v
	}
	return out
}
