package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"hargalist/internal"
)

// HTMLExtractor pulls price tables out of HTML documents and HTML email
// bodies. Every <table> is shaped independently; layout tables without a
// price column contribute nothing.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Method() internal.ExtractionMethod { return internal.MethodHTMLTable }

func (e *HTMLExtractor) Extract(ctx context.Context, doc internal.Document) (Result, error) {
	sel, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Bytes))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{}
	line := 0
	sel.Find("table").Each(func(_ int, table *goquery.Selection) {
		var grid [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, td.Text())
			})
			if len(cells) > 0 {
				grid = append(grid, cells)
			}
		})
		rows := sheetRows(grid, line)
		if len(rows) == 0 {
			return
		}
		line = rows[len(rows)-1].Line
		res.Rows = append(res.Rows, rows...)
	})
	if len(res.Rows) == 0 {
		return Result{}, ErrNoRows
	}
	res.SupplierGuess = SupplierFromText(sel.Text())
	if res.SupplierGuess == "" {
		res.SupplierGuess = SupplierFromFilename(doc.Filename)
	}
	res.Completeness = completeness(res.Rows)
	return res, nil
}
