package ingest

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Spreadsheet statements skip layout reconstruction entirely: the file
// format already carries the row/column structure, so each sheet becomes
// one page grid.

// XLSXGrids reads every sheet of an XLSX workbook into page grids, one
// page per sheet in workbook order.
func XLSXGrids(data []byte) ([]PageGrid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, newError(ErrInputRejected, "could not open XLSX workbook", err)
	}
	defer f.Close()

	var grids []PageGrid
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, newError(ErrInputRejected, "could not read XLSX sheet", err)
		}
		grid := PageGrid{Page: i + 1}
		for _, row := range rows {
			if cells := trimRow(row); len(cells) > 0 {
				grid.Rows = append(grid.Rows, cells)
			}
		}
		grids = append(grids, grid)
	}
	return requireRows(grids)
}

// XLSGrids reads a legacy XLS workbook into page grids.
func XLSGrids(data []byte) ([]PageGrid, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, newError(ErrInputRejected, "could not open XLS workbook", err)
	}

	var grids []PageGrid
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		grid := PageGrid{Page: i + 1}
		maxRow := int(sheet.MaxRow)
		for r := 0; r <= maxRow; r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			var cells []string
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			if cells = trimRow(cells); len(cells) > 0 {
				grid.Rows = append(grid.Rows, cells)
			}
		}
		grids = append(grids, grid)
	}
	return requireRows(grids)
}

// CSVGrids reads a CSV export as a single-page grid. Ragged rows are
// accepted; fully empty rows are dropped.
func CSVGrids(data []byte) ([]PageGrid, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, newError(ErrInputRejected, "could not parse CSV file", err)
	}

	grid := PageGrid{Page: 1}
	for _, rec := range records {
		if cells := trimRow(rec); len(cells) > 0 {
			grid.Rows = append(grid.Rows, cells)
		}
	}
	return requireRows([]PageGrid{grid})
}

func trimRow(cells []string) TableRow {
	out := make(TableRow, 0, len(cells))
	for _, c := range cells {
		if t := strings.TrimSpace(c); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func requireRows(grids []PageGrid) ([]PageGrid, error) {
	for _, g := range grids {
		if len(g.Rows) > 0 {
			return grids, nil
		}
	}
	return nil, newError(ErrNoExtractableText, "the file contains no data rows", nil)
}
