package extract

import (
	"context"

	"hargalist/internal"
)

// TextExtractor parses plain text line by line, the same way the PDF text
// layer is parsed. Email bodies land here.
type TextExtractor struct{}

func (e *TextExtractor) Method() internal.ExtractionMethod { return internal.MethodTextLines }

func (e *TextExtractor) Extract(ctx context.Context, doc internal.Document) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	res := Result{}
	lineNo := 0
	for _, line := range splitLines(string(doc.Bytes)) {
		lineNo++
		row, ok := lineToRow(lineNo, line)
		if !ok {
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	if len(res.Rows) == 0 {
		return Result{}, ErrNoRows
	}
	res.SupplierGuess = SupplierFromText(string(doc.Bytes))
	res.Completeness = completeness(res.Rows)
	return res, nil
}
