package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/tealeg/xlsx/v3"
	"github.com/xuri/excelize/v2"

	"hargalist/internal"
)

// SpreadsheetExtractor reads .xlsx workbooks with excelize, scanning every
// sheet for a price table.
type SpreadsheetExtractor struct{}

func (e *SpreadsheetExtractor) Method() internal.ExtractionMethod { return internal.MethodSpreadsheet }

func (e *SpreadsheetExtractor) Extract(ctx context.Context, doc internal.Document) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(doc.Bytes))
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	res := Result{}
	line := 0
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		grid, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		rows := sheetRows(grid, line)
		if len(rows) == 0 {
			continue
		}
		line = rows[len(rows)-1].Line
		res.Rows = append(res.Rows, rows...)
		if res.SupplierGuess == "" {
			res.SupplierGuess = supplierFromGrid(grid)
		}
	}
	if len(res.Rows) == 0 {
		return Result{}, ErrNoRows
	}
	if res.SupplierGuess == "" {
		res.SupplierGuess = SupplierFromFilename(doc.Filename)
	}
	res.Completeness = completeness(res.Rows)
	return res, nil
}

func sheetRows(grid [][]string, startLine int) []internal.RawRow {
	if len(grid) == 0 {
		return nil
	}
	if hi, cm, ok := detectHeader(grid, 12); ok {
		return shapeRows(grid[hi+1:], cm, startLine+hi+1)
	}
	if cm, ok := inferColumns(grid); ok {
		return shapeRows(grid, cm, startLine)
	}
	return nil
}

// supplierFromGrid checks the banner rows above the table for a company
// name before falling back to the filename.
func supplierFromGrid(grid [][]string) string {
	limit := len(grid)
	if limit > 6 {
		limit = 6
	}
	var banner strings.Builder
	for _, r := range grid[:limit] {
		banner.WriteString(strings.Join(r, " "))
		banner.WriteString("\n")
	}
	return SupplierFromText(banner.String())
}

// SpreadsheetAltExtractor is the fallback workbook reader. tealeg/xlsx
// tolerates some producer quirks excelize rejects, so it runs second.
type SpreadsheetAltExtractor struct{}

func (e *SpreadsheetAltExtractor) Method() internal.ExtractionMethod {
	return internal.MethodSpreadsheetAlt
}

func (e *SpreadsheetAltExtractor) Extract(ctx context.Context, doc internal.Document) (Result, error) {
	wb, err := xlsx.OpenBinary(doc.Bytes)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}

	res := Result{}
	line := 0
	for _, sheet := range wb.Sheets {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		var grid [][]string
		err := sheet.ForEachRow(func(r *xlsx.Row) error {
			var cells []string
			cellErr := r.ForEachCell(func(c *xlsx.Cell) error {
				v, _ := c.FormattedValue()
				cells = append(cells, v)
				return nil
			})
			if cellErr != nil {
				return cellErr
			}
			grid = append(grid, cells)
			return nil
		})
		sheet.Close()
		if err != nil {
			continue
		}
		rows := sheetRows(grid, line)
		if len(rows) == 0 {
			continue
		}
		line = rows[len(rows)-1].Line
		res.Rows = append(res.Rows, rows...)
		if res.SupplierGuess == "" {
			res.SupplierGuess = supplierFromGrid(grid)
		}
	}
	if len(res.Rows) == 0 {
		return Result{}, ErrNoRows
	}
	if res.SupplierGuess == "" {
		res.SupplierGuess = SupplierFromFilename(doc.Filename)
	}
	res.Completeness = completeness(res.Rows)
	return res, nil
}
