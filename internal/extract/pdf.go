package extract

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"hargalist/internal"
	"hargalist/internal/util"
)

var pdfNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(daftar\s*harga|price\s*list|halaman|page)\b`),
	regexp.MustCompile(`(?i)^(telp|telepon|fax|email|alamat|npwp|website)\b`),
	regexp.MustCompile(`(?i)^(terima\s*kasih|hormat\s*kami|catatan|note[s]?:)`),
	regexp.MustCompile(`^[-=_*~]{3,}$`),
}

func isPDFNoise(line string) bool {
	for _, re := range pdfNoisePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// PDFTextExtractor reads the embedded text layer and splits each line into
// name, unit and price. Scanned PDFs have no text layer and fall through
// to the vision step.
type PDFTextExtractor struct{}

func (e *PDFTextExtractor) Method() internal.ExtractionMethod { return internal.MethodPDFText }

func (e *PDFTextExtractor) Extract(ctx context.Context, doc internal.Document) (Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(doc.Bytes), int64(len(doc.Bytes)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}

	res := Result{}
	lineNo := 0
	var banner strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			lineNo++
			if lineNo <= 8 {
				banner.WriteString(line)
				banner.WriteString(" ")
			}
			row, ok := lineToRow(lineNo, line)
			if !ok {
				continue
			}
			res.Rows = append(res.Rows, row)
		}
	}
	if len(res.Rows) == 0 {
		return Result{}, ErrNoRows
	}
	res.SupplierGuess = SupplierFromText(banner.String())
	if res.SupplierGuess == "" {
		res.SupplierGuess = SupplierFromFilename(doc.Filename)
	}
	res.Completeness = completeness(res.Rows)
	return res, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var trailingPrice = regexp.MustCompile(`(?i)(rp\.?\s*)?([\d][\d.,\s]*\d|\d)\s*(k|rb|ribu)?\s*$`)

// lineToRow splits "Wortel Lokal kg 8.000" into its fields. The price is
// the trailing numeric run; a unit token directly before it is peeled off;
// the rest is the name.
func lineToRow(lineNo int, line string) (internal.RawRow, bool) {
	compact := util.NormalizeSpaces(line)
	if compact == "" || isPDFNoise(compact) {
		return internal.RawRow{}, false
	}

	m := trailingPrice.FindStringIndex(compact)
	if m == nil {
		return internal.RawRow{}, false
	}
	priceRaw := strings.TrimSpace(compact[m[0]:])
	rest := util.NormalizeSpaces(compact[:m[0]])
	if rest == "" {
		return internal.RawRow{}, false
	}

	row := internal.RawRow{Line: lineNo, PriceRaw: priceRaw}
	if p, ok := util.ParsePrice(priceRaw); ok {
		row.Price = p
	}

	tokens := strings.Fields(rest)
	if len(tokens) > 1 {
		last := tokens[len(tokens)-1]
		if u := util.NormalizeKey(last); looksLikeUnit(u) {
			row.Unit = last
			tokens = tokens[:len(tokens)-1]
		}
	}
	// leading line numbers ("1. Wortel")
	if len(tokens) > 1 {
		first := strings.TrimRight(tokens[0], ".)")
		if _, ok := util.ParsePrice(first); ok && len(first) <= 3 {
			tokens = tokens[1:]
		}
	}
	row.Name = strings.Join(tokens, " ")
	if row.Name == "" {
		return internal.RawRow{}, false
	}
	return row, true
}

var pdfUnitTokens = map[string]bool{
	"kg": true, "g": true, "gr": true, "gram": true, "ons": true,
	"l": true, "lt": true, "liter": true, "ltr": true, "ml": true,
	"pcs": true, "pc": true, "bh": true, "buah": true, "biji": true,
	"ikat": true, "sisir": true, "lembar": true, "pack": true, "pak": true,
	"box": true, "dus": true, "btl": true, "botol": true, "kaleng": true,
	"karung": true, "sak": true, "lusin": true, "kotak": true, "tray": true,
}

func looksLikeUnit(token string) bool {
	if pdfUnitTokens[token] {
		return true
	}
	// quantity-prefixed units: 250ml, 5kg
	m := regexp.MustCompile(`^\d+([.,]\d+)?([a-z]+)$`).FindStringSubmatch(token)
	return m != nil && pdfUnitTokens[m[2]]
}

// PDFTableExtractor groups text fragments by row position, recovering
// column structure that plain-text extraction flattens. Useful when the
// text layer interleaves columns out of reading order.
type PDFTableExtractor struct{}

func (e *PDFTableExtractor) Method() internal.ExtractionMethod { return internal.MethodPDFTable }

func (e *PDFTableExtractor) Extract(ctx context.Context, doc internal.Document) (Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(doc.Bytes), int64(len(doc.Bytes)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}

	var grid [][]string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		sort.Slice(rows, func(a, b int) bool { return rows[a].Position > rows[b].Position })
		for _, row := range rows {
			var cells []string
			var cur strings.Builder
			lastEnd := -1.0
			for _, t := range row.Content {
				// a wide horizontal gap separates columns
				if lastEnd >= 0 && t.X-lastEnd > 12 {
					cells = append(cells, strings.TrimSpace(cur.String()))
					cur.Reset()
				}
				cur.WriteString(t.S)
				lastEnd = t.X + t.W
			}
			if cur.Len() > 0 {
				cells = append(cells, strings.TrimSpace(cur.String()))
			}
			if len(cells) > 0 {
				grid = append(grid, cells)
			}
		}
	}

	var rows []internal.RawRow
	if hi, cm, ok := detectHeader(grid, 12); ok {
		rows = shapeRows(grid[hi+1:], cm, hi+1)
	} else if cm, ok := inferColumns(grid); ok {
		rows = shapeRows(grid, cm, 0)
	}
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
