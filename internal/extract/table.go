package extract

import (
	"strings"

	"hargalist/internal"
	"hargalist/internal/util"
)

// columnMap records which column index holds which field after header
// discovery. -1 means the column was not found.
type columnMap struct {
	Name     int
	Unit     int
	Price    int
	Category int
}

func (c columnMap) valid() bool { return c.Name >= 0 && c.Price >= 0 }

var (
	nameHeaders     = []string{"nama barang", "nama produk", "nama item", "nama", "barang", "produk", "product", "item", "description", "deskripsi", "uraian"}
	unitHeaders     = []string{"satuan", "unit", "uom", "kemasan", "pack"}
	priceHeaders    = []string{"harga satuan", "harga jual", "harga", "price", "unit price", "rp"}
	categoryHeaders = []string{"kategori", "category", "jenis", "kelompok"}
)

func matchHeader(cell string, candidates []string) bool {
	c := util.NormalizeKey(cell)
	if c == "" {
		return false
	}
	for _, want := range candidates {
		if c == want || strings.Contains(c, want) {
			return true
		}
	}
	return false
}

// detectHeader scans the first rows of a table for a header row containing
// at least a name column and a price column. Returns the header row index
// and the column mapping, or ok=false when no plausible header exists.
func detectHeader(rows [][]string, maxScan int) (int, columnMap, bool) {
	if maxScan > len(rows) {
		maxScan = len(rows)
	}
	for i := 0; i < maxScan; i++ {
		cm := columnMap{Name: -1, Unit: -1, Price: -1, Category: -1}
		for j, cell := range rows[i] {
			switch {
			case cm.Price < 0 && matchHeader(cell, priceHeaders):
				cm.Price = j
			case cm.Name < 0 && matchHeader(cell, nameHeaders):
				cm.Name = j
			case cm.Unit < 0 && matchHeader(cell, unitHeaders):
				cm.Unit = j
			case cm.Category < 0 && matchHeader(cell, categoryHeaders):
				cm.Category = j
			}
		}
		if cm.valid() {
			return i, cm, true
		}
	}
	return 0, columnMap{}, false
}

// plausiblePrice rejects values that parse as numbers but cannot be rupiah
// prices, like phone numbers and ID columns.
func plausiblePrice(p float64) bool {
	return p > 0 && p < 100_000_000
}

// inferColumns handles headerless tables: the name column is the leftmost
// mostly-textual column and the price column the rightmost column whose
// cells mostly parse as positive numbers.
func inferColumns(rows [][]string) (columnMap, bool) {
	cm := columnMap{Name: -1, Unit: -1, Price: -1, Category: -1}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width < 2 {
		return cm, false
	}

	sample := rows
	if len(sample) > 30 {
		sample = sample[:30]
	}
	for j := width - 1; j >= 0; j-- {
		numeric, filled := 0, 0
		for _, r := range sample {
			if j >= len(r) {
				continue
			}
			cell := strings.TrimSpace(r[j])
			if cell == "" {
				continue
			}
			filled++
			if p, ok := util.ParsePrice(cell); ok && plausiblePrice(p) {
				numeric++
			}
		}
		if filled >= 3 && numeric*2 > filled {
			cm.Price = j
			break
		}
	}
	if cm.Price <= 0 {
		return cm, false
	}
	cm.Name = 0
	// a numeric first column is a line number, not a name
	numericFirst := 0
	for _, r := range sample {
		if len(r) == 0 {
			continue
		}
		if _, ok := util.ParsePrice(strings.TrimSpace(r[0])); ok {
			numericFirst++
		}
	}
	if numericFirst > len(sample)/2 && cm.Price > 1 {
		cm.Name = 1
	}
	if cm.Price-cm.Name >= 2 {
		cm.Unit = cm.Price - 1
	}
	return cm, cm.valid()
}

// shapeRows converts a cell grid into RawRows using the column map.
// Rows with an empty name cell are skipped; rows whose price cell fails to
// parse keep Price 0 with the raw text preserved.
func shapeRows(rows [][]string, cm columnMap, startLine int) []internal.RawRow {
	out := make([]internal.RawRow, 0, len(rows))
	line := startLine
	for _, r := range rows {
		line++
		cell := func(idx int) string {
			if idx < 0 || idx >= len(r) {
				return ""
			}
			return strings.TrimSpace(r[idx])
		}
		name := cell(cm.Name)
		if name == "" {
			continue
		}
		if matchHeader(name, nameHeaders) && cell(cm.Price) != "" && matchHeader(cell(cm.Price), priceHeaders) {
			continue // repeated header row mid-sheet
		}
		rr := internal.RawRow{
			Line:     line,
			Name:     name,
			Unit:     cell(cm.Unit),
			PriceRaw: cell(cm.Price),
			Category: cell(cm.Category),
		}
		if p, ok := util.ParsePrice(rr.PriceRaw); ok {
			rr.Price = p
		}
		out = append(out, rr)
	}
	return out
}

// completeness is the fraction of rows carrying a positive parsed price.
func completeness(rows []internal.RawRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	priced := 0
	for _, r := range rows {
		if r.Price > 0 {
			priced++
		}
	}
	return float64(priced) / float64(len(rows))
}
