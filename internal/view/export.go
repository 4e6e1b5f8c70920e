package view

import (
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
)

// ExportCSV writes a slice of entities as CSV.
func ExportCSV(w io.Writer, rows interface{}) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

// ExportXLSX writes pre-rendered cells as an Excel workbook.
func ExportXLSX(path string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	for i, h := range headers {
		f.SetCellValue("Sheet1", fmt.Sprintf("%s1", excelize.ToAlphaString(i)), h)
	}
	for r, row := range rows {
		for c, cell := range row {
			f.SetCellValue("Sheet1", fmt.Sprintf("%s%d", excelize.ToAlphaString(c), r+2), cell)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export xlsx %s: %w", path, err)
	}
	return nil
}
