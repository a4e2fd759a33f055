package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"hargalist/internal"
)

// CSVExtractor parses delimiter-separated files. Documents without a
// plausible price column (contact lists, inventories) yield zero rows
// rather than garbage records.
type CSVExtractor struct{}

func (e *CSVExtractor) Method() internal.ExtractionMethod { return internal.MethodCSV }

func (e *CSVExtractor) Extract(ctx context.Context, doc internal.Document) (Result, error) {
	grid, err := readDelimited(doc.Bytes, ',')
	if err != nil || len(grid) == 0 {
		// retry with semicolons, common in Indonesian locale exports
		grid, err = readDelimited(doc.Bytes, ';')
		if err != nil {
			return Result{}, fmt.Errorf("parse csv: %w", err)
		}
	}
	if len(grid) > 0 && len(grid[0]) <= 1 {
		// single-column parse usually means the wrong delimiter
		if alt, altErr := readDelimited(doc.Bytes, ';'); altErr == nil && len(alt) > 0 && len(alt[0]) > len(grid[0]) {
			grid = alt
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rows := sheetRows(grid, 0)
	if len(rows) == 0 {
		return Result{}, ErrNoRows
	}
	res := Result{
		Rows:          rows,
		SupplierGuess: SupplierFromFilename(doc.Filename),
		Completeness:  completeness(rows),
	}
	return res, nil
}

func readDelimited(data []byte, comma rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var grid [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		grid = append(grid, rec)
	}
	return grid, nil
}
